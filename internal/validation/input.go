package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinJobTitleLength            = 3
	MaxJobTitleLength            = 200
	MaxJobDescriptionLength      = 5000
	MinGigTitleLength            = 3
	MaxGigTitleLength            = 200
	MaxGigPackages               = 3
	MinPackageNameLength         = 1
	MaxPackageNameLength         = 100
	MinProposalCoverLetterLength = 10
	MaxProposalCoverLetterLength = 2000
	MinDisputeReasonLength       = 10
	MaxDisputeReasonLength       = 200 // байт под причину в escrow-аккаунте
	MaxDeliveryDays              = 365
	MaxDecisionsPerRequest       = 100
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3,5}$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateCurrency проверяет код валюты.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("некорректный код валюты")
	}
	return nil
}

// ValidateJobTitle проверяет заголовок заказа.
func ValidateJobTitle(title string) error {
	if err := ValidateNonEmpty("заголовок заказа", title); err != nil {
		return err
	}
	return ValidateLength("заголовок заказа", strings.TrimSpace(title), MinJobTitleLength, MaxJobTitleLength)
}

// ValidateJobDescription проверяет описание заказа.
func ValidateJobDescription(description string) error {
	return ValidateLength("описание заказа", strings.TrimSpace(description), 0, MaxJobDescriptionLength)
}

// ValidateGigTitle проверяет название услуги.
func ValidateGigTitle(title string) error {
	if err := ValidateNonEmpty("название услуги", title); err != nil {
		return err
	}
	return ValidateLength("название услуги", strings.TrimSpace(title), MinGigTitleLength, MaxGigTitleLength)
}

// ValidatePackageName проверяет название пакета услуги.
func ValidatePackageName(name string) error {
	return ValidateLength("название пакета", strings.TrimSpace(name), MinPackageNameLength, MaxPackageNameLength)
}

// ValidateCoverLetter проверяет сопроводительное письмо.
func ValidateCoverLetter(coverLetter string) error {
	if err := ValidateNonEmpty("сопроводительное письмо", coverLetter); err != nil {
		return err
	}
	return ValidateLength("сопроводительное письмо", strings.TrimSpace(coverLetter), MinProposalCoverLetterLength, MaxProposalCoverLetterLength)
}

// ValidateDisputeReason проверяет причину спора.
func ValidateDisputeReason(reason string) error {
	if err := ValidateNonEmpty("причина спора", reason); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if err := ValidateLength("причина спора", reason, MinDisputeReasonLength, MaxDisputeReasonLength); err != nil {
		return err
	}
	// escrow-аккаунт хранит причину в байтах UTF-8
	if len(reason) > MaxDisputeReasonLength {
		return fmt.Errorf("причина спора должна занимать не более %d байт", MaxDisputeReasonLength)
	}
	return nil
}

// ValidateDeliveryDays проверяет срок выполнения.
func ValidateDeliveryDays(days int) error {
	if days < 1 || days > MaxDeliveryDays {
		return fmt.Errorf("срок выполнения должен быть от 1 до %d дней", MaxDeliveryDays)
	}
	return nil
}
