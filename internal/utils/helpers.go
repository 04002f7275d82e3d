package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/senyabanana/tender-engine/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, errorResponse *models.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errorResponse.StatusCode)

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Println(err)
	}
}

// HandleError отправляет ErrorResponse как есть, остальные ошибки - как 500.
func HandleError(w http.ResponseWriter, logger *log.Logger, err error) {
	if errorResponse, ok := models.AsErrorResponse(err); ok {
		if errorResponse.Kind == models.UnavailableError {
			logger.Println(err)
		}
		SendErrorResponse(w, errorResponse)
		return
	}
	logger.Println(err)
	SendErrorResponse(w, &models.ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Kind:       models.UnavailableError,
		Message:    "internal server error",
	})
}

// SendJSON отправляет ответ в формате JSON
func SendJSON(w http.ResponseWriter, logger *log.Logger, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Println(err)
	}
}

// DecodeJSON читает тело запроса; неизвестные поля считаются ошибкой.
func DecodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return models.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 50 {
			return 0, 0, models.NewValidationError("invalid limit parameter, must be a positive integer [0:50]")
		}
	} else {
		limit = 5
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, models.NewValidationError("invalid offset parameter, must be a non-negative integer")
		}
	} else {
		offset = 0
	}

	return limit, offset, nil
}

// Sanitize удаляет разметку из пользовательского текста и обрезает пробелы.
func Sanitize(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// Contains - функция для проверки перехода между статусами
func Contains[T comparable](valid []T, value T) bool {
	for _, v := range valid {
		if v == value {
			return true
		}
	}
	return false
}
