package cli

import (
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Local().Format("2006-01-02 15:04:05")
	},
	"money": func(v float64) string {
		return formatAmount(v)
	},
}

var (
	statusTmpl        = template.Must(template.New("status").Funcs(funcs).Parse(statusTemplate))
	ordersTmpl        = template.Must(template.New("orders").Funcs(funcs).Parse(ordersListTemplate))
	orderTmpl         = template.Must(template.New("order").Funcs(funcs).Parse(orderTemplate))
	threadTmpl        = template.Must(template.New("thread").Funcs(funcs).Parse(threadTemplate))
	notificationsTmpl = template.Must(template.New("notifications").Funcs(funcs).Parse(notificationsTemplate))
	paymentsTmpl      = template.Must(template.New("payments").Funcs(funcs).Parse(pendingPaymentsTemplate))
)

const statusTemplate = `
=== Sync Status ===

Transport:    {{.Status.Transport}}
State:        {{.Status.State}}
{{- if .Status.Polling }}
Polling:      yes
{{- end}}
Last attempt: {{when .Status.LastAttempt}}
Last success: {{when .Status.LastSuccess}}
{{- if .Status.LastError }}
Last error:   {{.Status.LastError}}
{{- end}}
{{- if .Status.Offline }}
Offline:      {{.Status.ConsecutiveFailures}} failed attempts in a row, showing last known data
{{- end}}
{{- if .Cursor }}
Cursor:       {{.Cursor}}
{{- end}}
Pending:      {{.Pending}} key(s) waiting to be pushed
{{- if .Quarantined }}

Quarantined records ({{len .Quarantined}}):
{{- range .Quarantined }}
- {{.Key}} at {{when .ReceivedAt}}: {{.Reason}}
{{- end}}
{{- end}}
`

const ordersListTemplate = `
=== {{.Title}} ===

{{- if eq (len .Orders) 0 }}
Nothing found.
{{ else }}
Found {{len .Orders}} item(s):
{{- range .Orders }}
- {{.ID}} [{{.Kind}}]
   Status:  {{.DisplayStatus}}
   Payment: {{.DisplayPaymentStatus}}
   Amount:  {{money .Amount}}
   Created: {{when .CreatedAt}}
{{- end}}
{{- end}}
`

const orderTemplate = `
=== Order Details ===

ID:       {{.ID}}
Kind:     {{.Kind}}
Status:   {{.DisplayStatus}}
Payment:  {{.DisplayPaymentStatus}}
{{- if .PaymentMethod }}
Method:   {{.PaymentMethod}}
{{- end}}
{{- if .DeliveryMethod }}
Delivery: {{.DeliveryMethod}}
{{- end}}
Amount:   {{money .Amount}}
Created:  {{when .CreatedAt}}
{{- if .Items }}

Items:
{{- range .Items }}
- {{.Quantity}} x {{if .Name}}{{.Name}}{{else}}{{.ProductID}}{{end}} @ {{money .Price}}
{{- end}}
{{- end}}
{{- if .Notes }}

Notes: {{.Notes}}
{{- end}}
`

const threadTemplate = `
=== Messages for {{.OrderID}} ===

{{- if eq (len .Messages) 0 }}
No messages yet.
{{ else }}
{{- range .Messages }}
[{{when .Timestamp}}] {{.Sender}}: {{.Body}}
{{- with .PaymentRequest }}
   Payment request {{money .Amount}}: {{.Status}}
{{- end}}
{{- end}}
{{- end}}
`

const notificationsTemplate = `
=== Notifications ===

{{- if eq (len .) 0 }}
No notifications.
{{ else }}
{{- range . }}
{{if .Read}} {{else}}*{{end}} {{.ID}} [{{when .Timestamp}}] {{.Title}}: {{.Body}}
{{- end}}
{{- end}}
`

const pendingPaymentsTemplate = `
=== Pending Payment Requests ===

{{- if eq (len .) 0 }}
No pending payment requests.
{{ else }}
{{- range . }}
- {{.ID}} order {{.OrderID}}
   Amount: {{money .PaymentRequest.Amount}}
   Status: {{.PaymentRequest.Status}}
{{- end}}
{{- end}}
`
