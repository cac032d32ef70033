package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
)

type TaxHandler interface {
	Calculate(w http.ResponseWriter, r *http.Request)
	GetTable(w http.ResponseWriter, r *http.Request)
	ReloadTable(w http.ResponseWriter, r *http.Request)
}

type taxHandlerImpl struct {
	taxService tax.TaxService
}

func NewTaxHandler(taxService tax.TaxService) TaxHandler {
	return &taxHandlerImpl{taxService: taxService}
}

func (h *taxHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	var req tax.CalculateTaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Calculate tax decode error", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.taxService.Calculate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *taxHandlerImpl) GetTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.taxService.Table(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, table)
}

func (h *taxHandlerImpl) ReloadTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.taxService.Reload(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Tax table reloaded", map[string]string{"version": table.Version})
}
