// Package payment implements the payment-request lifecycle:
// pending -> pending-with-receipt -> confirmed. Confirmed is terminal.
package payment

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/petalsync/internal/models"
)

var (
	// ErrPaymentRequestNotFound сообщение не найдено или не является запросом на оплату
	ErrPaymentRequestNotFound = errors.New("payment request not found")
	// ErrAlreadyConfirmed запрос уже подтвержден, переход назад невозможен
	ErrAlreadyConfirmed = errors.New("payment request already confirmed")
	// ErrEmptyReceipt чек не передан
	ErrEmptyReceipt = errors.New("receipt is empty")
	// ErrDuplicateReceipt тот же чек уже приложен к другому запросу
	ErrDuplicateReceipt = errors.New("receipt already attached to another payment request")
	// ErrInvalidTransition переход нарушает порядок состояний
	ErrInvalidTransition = errors.New("invalid payment request transition")
	// ErrInvalidAmount сумма запроса не положительная
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

// NewRequest creates a pending payment request.
func NewRequest(amount float64) (*models.PaymentRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &models.PaymentRequest{
		Status: models.PaymentRequestPending,
		Amount: amount,
	}, nil
}

// ReceiptDigest returns the hex BLAKE2b-256 digest of a receipt.
func ReceiptDigest(receipt []byte) string {
	sum := blake2b.Sum256(receipt)
	return hex.EncodeToString(sum[:])
}

// AttachReceipt moves pr to pending-with-receipt. Attaching again replaces the receipt;
// attaching the same receipt again changes nothing and reports false.
func AttachReceipt(pr *models.PaymentRequest, receipt []byte, at time.Time) (bool, error) {
	if len(receipt) == 0 {
		return false, ErrEmptyReceipt
	}
	if err := advance(pr, models.PaymentRequestPendingWithReceipt); err != nil {
		return false, err
	}

	digest := ReceiptDigest(receipt)
	if pr.Status == models.PaymentRequestPendingWithReceipt && pr.ReceiptDigest == digest {
		return false, nil
	}

	pr.Status = models.PaymentRequestPendingWithReceipt
	pr.Receipt = base64.StdEncoding.EncodeToString(receipt)
	pr.ReceiptDigest = digest
	pr.ReceiptAt = &at
	return true, nil
}

// Confirm moves pr to the terminal confirmed state.
func Confirm(pr *models.PaymentRequest, at time.Time) error {
	if err := advance(pr, models.PaymentRequestConfirmed); err != nil {
		return err
	}
	pr.Status = models.PaymentRequestConfirmed
	pr.ConfirmedAt = &at
	return nil
}

func advance(pr *models.PaymentRequest, next models.PaymentRequestStatus) error {
	if pr.Status == models.PaymentRequestConfirmed {
		return ErrAlreadyConfirmed
	}
	if !pr.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, pr.Status, next)
	}
	return nil
}
