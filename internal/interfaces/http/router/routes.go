package router

import "github.com/insurance/payplan/internal/interfaces/http/handler"

// PayplanRoutes maps the reconciliation endpoints onto /payplan
func PayplanRoutes(h *handler.PayplanHandler) *DomainGroup {
	return NewDomainGroup("payplan", "/payplan").
		GET("/subjects/:subject_id/schedule", h.GetSchedule).
		POST("/subjects/:subject_id/schedule/edit", h.BeginEdit).
		PUT("/subjects/:subject_id/schedule", h.SaveSchedule).
		POST("/subjects/:subject_id/schedule/recreate", h.RecreateSchedule).
		POST("/subjects/:subject_id/installments", h.AddInstallment).
		GET("/subjects/:subject_id/settlement", h.GetSettlement).
		GET("/subjects/:subject_id/state", h.GetState).
		DELETE("/installments/:id", h.RemoveInstallment).
		POST("/installments/:id/toggle-paid", h.TogglePaid)
}

// SystemRoutes maps the system info endpoints onto /system
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}
