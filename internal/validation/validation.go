// Package validation проверяет пользовательский ввод CLI.
package validation

import (
	"errors"
	"fmt"
	"regexp"
)

// SubjectPattern допустимый формат subject токена клиента:
// латинские буквы, цифры, '_', '-', '.'; длина 3-64 символа
var SubjectPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

const (
	// MinSubjectLen минимальная длина subject
	MinSubjectLen = 3
	// MaxSubjectLen максимальная длина subject
	MaxSubjectLen = 64
	// MinPassphraseLen минимальная длина пароля зашифрованного экспорта
	MinPassphraseLen = 8
)

// ValidateSubject проверяет идентификатор клиента, для которого выпускается токен
func ValidateSubject(subject string) error {
	if subject == "" {
		return errors.New("subject cannot be empty")
	}
	if len(subject) < MinSubjectLen {
		return fmt.Errorf("subject must be at least %d characters long", MinSubjectLen)
	}
	if len(subject) > MaxSubjectLen {
		return fmt.Errorf("subject must not exceed %d characters", MaxSubjectLen)
	}
	if !SubjectPattern.MatchString(subject) {
		return errors.New("subject can only contain letters, numbers, '_', '-' and '.'")
	}
	return nil
}

// ValidatePassphrase проверяет минимальные требования к паролю экспорта
func ValidatePassphrase(passphrase string) error {
	if passphrase == "" {
		return errors.New("passphrase cannot be empty")
	}
	if len(passphrase) < MinPassphraseLen {
		return fmt.Errorf("passphrase must be at least %d characters long", MinPassphraseLen)
	}
	return nil
}
