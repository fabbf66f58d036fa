package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Shape описывает форму JSON документа, ожидаемую для ключа синхронизации
type Shape int

const (
	// ShapeCollection JSON массив объектов
	ShapeCollection Shape = iota + 1
	// ShapeDocument JSON объект
	ShapeDocument
	// ShapeCollectionOrDocument массив объектов или объект (stock хранится в обоих вариантах)
	ShapeCollectionOrDocument
	// ShapeNullableDocument объект или null (current-user после выхода)
	ShapeNullableDocument
)

// ErrInvalidRecord is wrapped by every schema violation.
var ErrInvalidRecord = errors.New("invalid sync record")

var keyShapes = map[SyncKey]Shape{
	KeyCurrentUser:       ShapeNullableDocument,
	KeyCatalogueProducts: ShapeCollection,
	KeyOrders:            ShapeCollection,
	KeyRequests:          ShapeCollection,
	KeyStock:             ShapeCollectionOrDocument,
	KeyNotifications:     ShapeCollection,
	KeyMessages:          ShapeCollection,
	KeyEmployees:         ShapeCollection,
	KeyAboutPage:         ShapeDocument,
	KeyContactPage:       ShapeDocument,
}

// ShapeOf returns the expected shape for key.
func ShapeOf(key SyncKey) Shape {
	return keyShapes[key]
}

// EmptyValue returns the value a missing key stands for.
func EmptyValue(key SyncKey) json.RawMessage {
	switch ShapeOf(key) {
	case ShapeDocument:
		return json.RawMessage(`{}`)
	case ShapeNullableDocument:
		return json.RawMessage(`null`)
	default:
		return json.RawMessage(`[]`)
	}
}

// ValidateRecord checks that value matches the contract of key.
// Orders, requests, messages and notifications are decoded into their typed models
// and checked field by field; other keys are checked by shape only.
func ValidateRecord(key SyncKey, value json.RawMessage) error {
	if !key.IsValid() {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidRecord, key)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: %s: malformed JSON", ErrInvalidRecord, key)
	}

	if err := checkShape(key, value); err != nil {
		return err
	}

	switch key {
	case KeyOrders, KeyRequests:
		return validateOrders(key, value)
	case KeyMessages:
		return validateMessages(value)
	case KeyNotifications:
		return validateNotifications(value)
	}
	return nil
}

func checkShape(key SyncKey, value json.RawMessage) error {
	trimmed := bytes.TrimSpace(value)
	first := byte(0)
	if len(trimmed) > 0 {
		first = trimmed[0]
	}

	isNull := bytes.Equal(trimmed, []byte("null"))

	switch ShapeOf(key) {
	case ShapeCollection:
		if first != '[' {
			return fmt.Errorf("%w: %s: expected array", ErrInvalidRecord, key)
		}
		return checkArrayOfObjects(key, trimmed)
	case ShapeDocument:
		if first != '{' {
			return fmt.Errorf("%w: %s: expected object", ErrInvalidRecord, key)
		}
	case ShapeNullableDocument:
		if first != '{' && !isNull {
			return fmt.Errorf("%w: %s: expected object or null", ErrInvalidRecord, key)
		}
	case ShapeCollectionOrDocument:
		if first == '[' {
			return checkArrayOfObjects(key, trimmed)
		}
		if first != '{' {
			return fmt.Errorf("%w: %s: expected array or object", ErrInvalidRecord, key)
		}
	}
	return nil
}

func checkArrayOfObjects(key SyncKey, value []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, key, err)
	}
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return fmt.Errorf("%w: %s[%d]: expected object", ErrInvalidRecord, key, i)
		}
	}
	return nil
}

func validateOrders(key SyncKey, value json.RawMessage) error {
	var orders []Order
	if err := json.Unmarshal(value, &orders); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, key, err)
	}
	for i, o := range orders {
		if o.ID == "" {
			return fmt.Errorf("%w: %s[%d]: missing id", ErrInvalidRecord, key, i)
		}
		if o.Status != "" && !o.Status.IsValid() {
			return fmt.Errorf("%w: %s[%d]: unknown status %q", ErrInvalidRecord, key, i, o.Status)
		}
		if key == KeyRequests && o.Kind != "" && !o.Kind.IsRequest() {
			return fmt.Errorf("%w: %s[%d]: kind %q is not a request kind", ErrInvalidRecord, key, i, o.Kind)
		}
	}
	return nil
}

func validateMessages(value json.RawMessage) error {
	var messages []Message
	if err := json.Unmarshal(value, &messages); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, KeyMessages, err)
	}
	for i, m := range messages {
		if m.ID == "" {
			return fmt.Errorf("%w: %s[%d]: missing id", ErrInvalidRecord, KeyMessages, i)
		}
		if m.Sender != SenderUser && m.Sender != SenderAdmin {
			return fmt.Errorf("%w: %s[%d]: unknown sender %q", ErrInvalidRecord, KeyMessages, i, m.Sender)
		}
		if m.PaymentRequest != nil && !m.PaymentRequest.Status.IsValid() {
			return fmt.Errorf("%w: %s[%d]: unknown payment request status %q",
				ErrInvalidRecord, KeyMessages, i, m.PaymentRequest.Status)
		}
	}
	return nil
}

func validateNotifications(value json.RawMessage) error {
	var notifications []Notification
	if err := json.Unmarshal(value, &notifications); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, KeyNotifications, err)
	}
	for i, n := range notifications {
		if n.ID == "" {
			return fmt.Errorf("%w: %s[%d]: missing id", ErrInvalidRecord, KeyNotifications, i)
		}
	}
	return nil
}
