package dto

import "github.com/ignatzorin/taskfi-backend/internal/models"

// ErrorBody - содержимое поля error в ответе.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse - единый формат ошибки API.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// DecideResponse - итог пакетного решения по откликам.
type DecideResponse struct {
	Job      *models.Job             `json:"job"`
	Accepted *models.JobApplication  `json:"accepted"`
	Rejected []models.JobApplication `json:"rejected"`
}

// PurchaseResponse - результат покупки услуги.
type PurchaseResponse struct {
	Order   *models.GigOrder `json:"order"`
	Payment *models.Payment  `json:"payment"`
}

// CountResponse - ответ со счётчиком.
type CountResponse struct {
	Count int `json:"count"`
}

// MessageResponse - ответ с текстовым сообщением.
type MessageResponse struct {
	Message string `json:"message"`
}
