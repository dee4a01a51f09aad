package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/httpx"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/security"
	"github.com/ozgurkara/bordrohub/internal/services"
	"github.com/ozgurkara/bordrohub/internal/validation"
	"github.com/ozgurkara/bordrohub/internal/xlsx"
)

type EmployeeHandler struct {
	DB     *gorm.DB
	Intake *services.Intake
}

func NewEmployeeHandler(db *gorm.DB, intake *services.Intake) *EmployeeHandler {
	return &EmployeeHandler{DB: db, Intake: intake}
}

// employeeResponse exposes the masked TC alongside the model; the raw
// number never leaves the API.
type employeeResponse struct {
	*models.Employee
	TCNoMasked string `json:"tc_no_masked"`
}

func toEmployeeResponse(e *models.Employee) employeeResponse {
	return employeeResponse{Employee: e, TCNoMasked: e.TCMasked()}
}

func toEmployeeResponses(list []models.Employee) []employeeResponse {
	out := make([]employeeResponse, len(list))
	for i := range list {
		out[i] = toEmployeeResponse(&list[i])
	}
	return out
}

// List returns the company registry with optional search and filters.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	limit, offset := pagination(r)

	q := h.DB.Model(&models.Employee{}).Where("company_id = ?", id.CompanyID)
	if search := security.SanitizeSearch(r.URL.Query().Get("search")); search != "" {
		if validation.IsTCNo(search) {
			q = q.Where("tc_no = ?", search)
		} else {
			like := "%" + strings.ToLower(search) + "%"
			q = q.Where("lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ? OR lower(department) LIKE ?",
				like, like, like, like)
		}
	}
	if dep := security.SanitizeSearch(r.URL.Query().Get("department")); dep != "" {
		q = q.Where("department = ?", dep)
	}
	switch r.URL.Query().Get("is_active") {
	case "true":
		q = q.Where("is_active = ?", true)
	case "false":
		q = q.Where("is_active = ?", false)
	}

	var total int64
	q.Count(&total)
	var employees []models.Employee
	if err := q.Order("last_name, first_name").Limit(limit).Offset(offset).Find(&employees).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_employees", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": toEmployeeResponses(employees),
		"total": total,
	})
}

type employeeRequest struct {
	TCNo       string `json:"tc_no"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	IsActive   *bool  `json:"is_active"`
}

func (req *employeeRequest) validate(requireTC bool) validation.Violations {
	v := validation.Violations{}
	if requireTC || req.TCNo != "" {
		validation.TCNo("tc_no", req.TCNo, v)
	}
	validation.Required("email", req.Email, v)
	if req.Email != "" {
		validation.Email("email", req.Email, v)
	}
	return v
}

// Create adds one registry entry. The TC number must be unique within
// the company. New entries pick up earlier unmatched payslips.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req employeeRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(true); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var count int64
	h.DB.Model(&models.Employee{}).Where("company_id = ? AND tc_no = ?", id.CompanyID, req.TCNo).Count(&count)
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "tc_no_exists", nil)
		return
	}
	emp := models.Employee{
		CompanyID:  id.CompanyID,
		TCNo:       req.TCNo,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Department: strings.TrimSpace(req.Department),
		IsActive:   true,
	}
	if req.IsActive != nil {
		emp.IsActive = *req.IsActive
	}
	if err := h.DB.Create(&emp).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_employee", nil)
		return
	}
	if h.Intake != nil {
		h.Intake.Rematch(id.CompanyID)
	}
	httpx.JSON(w, http.StatusCreated, toEmployeeResponse(&emp))
}

func (h *EmployeeHandler) find(r *http.Request) (*models.Employee, bool) {
	id, _ := auth.IdentityFromContext(r.Context())
	empID, ok := pathID(r, "id")
	if !ok {
		return nil, false
	}
	var emp models.Employee
	err := h.DB.Where("company_id = ?", id.CompanyID).First(&emp, empID).Error
	if err != nil {
		return nil, false
	}
	return &emp, true
}

// Get returns one registry entry.
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.find(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "employee_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, toEmployeeResponse(emp))
}

// Update edits one registry entry. The TC number is immutable once set;
// delete and recreate when a typo slipped in.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.find(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "employee_not_found", nil)
		return
	}
	var req employeeRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.TCNo != "" && req.TCNo != emp.TCNo {
		httpx.JSONError(w, http.StatusBadRequest, "tc_no_immutable", nil)
		return
	}
	if v := req.validate(false); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	updates := map[string]any{
		"first_name": strings.TrimSpace(req.FirstName),
		"last_name":  strings.TrimSpace(req.LastName),
		"email":      strings.ToLower(strings.TrimSpace(req.Email)),
		"department": strings.TrimSpace(req.Department),
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := h.DB.Model(emp).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_employee", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, toEmployeeResponse(emp))
}

// Delete removes one entry; its payslips stay, unlinked.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	emp, ok := h.find(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "employee_not_found", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Payslip{}).
			Where("employee_id = ?", emp.ID).
			Updates(map[string]any{"employee_id": nil, "status": models.PayslipStatusNoEmployee}).Error; err != nil {
			return err
		}
		return tx.Delete(emp).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_employee", nil)
		return
	}
	audit(h.DB, id, r, models.AuditEmployeeDelete, emp.Email)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type bulkRequest struct {
	IDs      []uint `json:"ids"`
	IsActive *bool  `json:"is_active"`
}

// BulkUpdate toggles is_active on many entries at once.
func (h *EmployeeHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req bulkRequest
	if err := httpx.Decode(r, &req); err != nil || len(req.IDs) == 0 || req.IsActive == nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	res := h.DB.Model(&models.Employee{}).
		Where("company_id = ? AND id IN ?", id.CompanyID, req.IDs).
		Update("is_active", *req.IsActive)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_employees", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": res.RowsAffected})
}

// unlinkAndDelete drops registry entries, detaching their payslips first.
func unlinkAndDelete(tx *gorm.DB, companyID uint, ids []uint) (int64, error) {
	if err := tx.Model(&models.Payslip{}).
		Where("company_id = ? AND employee_id IN ?", companyID, ids).
		Updates(map[string]any{"employee_id": nil, "status": models.PayslipStatusNoEmployee}).Error; err != nil {
		return 0, err
	}
	res := tx.Where("company_id = ? AND id IN ?", companyID, ids).Delete(&models.Employee{})
	return res.RowsAffected, res.Error
}

// BulkDelete removes many entries at once; their payslips stay, unlinked.
func (h *EmployeeHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req bulkRequest
	if err := httpx.Decode(r, &req); err != nil || len(req.IDs) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var deleted int64
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = unlinkAndDelete(tx, id.CompanyID, req.IDs)
		return err
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_employees", nil)
		return
	}
	audit(h.DB, id, r, models.AuditEmployeeDelete, fmt.Sprintf("bulk deleted=%d", deleted))
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// DeleteAll wipes the whole registry of the company.
func (h *EmployeeHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var ids []uint
	h.DB.Model(&models.Employee{}).Where("company_id = ?", id.CompanyID).Pluck("id", &ids)
	var deleted int64
	if len(ids) > 0 {
		err := h.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			deleted, err = unlinkAndDelete(tx, id.CompanyID, ids)
			return err
		})
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_employees", nil)
			return
		}
	}
	audit(h.DB, id, r, models.AuditEmployeeDelete, fmt.Sprintf("all deleted=%d", deleted))
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// SelectAll returns every registry id, for the UI's select-all actions.
func (h *EmployeeHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var ids []uint
	q := h.DB.Model(&models.Employee{}).Where("company_id = ?", id.CompanyID)
	if r.URL.Query().Get("is_active") == "true" {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("id").Pluck("id", &ids).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_employees", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ids": ids, "total": len(ids)})
}

// importResult is the summary returned after a workbook import.
type importResult struct {
	Created   int             `json:"created"`
	Updated   int             `json:"updated"`
	Rematched int             `json:"rematched"`
	Errors    []xlsx.RowError `json:"errors,omitempty"`
}

// Import upserts the registry from an uploaded xlsx workbook, keyed by
// TC number.
func (h *EmployeeHandler) Import(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "file_required", nil)
		return
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		httpx.JSONError(w, http.StatusBadRequest, "xlsx_required", nil)
		return
	}

	rows, rowErrs, err := xlsx.ParseEmployees(file)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_workbook", err.Error())
		return
	}

	res := importResult{Errors: rowErrs}
	for _, row := range rows {
		var existing models.Employee
		err := h.DB.Where("company_id = ? AND tc_no = ?", id.CompanyID, row.TCNo).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			emp := models.Employee{
				CompanyID:  id.CompanyID,
				TCNo:       row.TCNo,
				FirstName:  row.FirstName,
				LastName:   row.LastName,
				Email:      strings.ToLower(row.Email),
				Department: row.Department,
				IsActive:   true,
			}
			if err := h.DB.Create(&emp).Error; err != nil {
				res.Errors = append(res.Errors, xlsx.RowError{Row: row.Row, Reason: "kayıt oluşturulamadı"})
				continue
			}
			res.Created++
		case err != nil:
			res.Errors = append(res.Errors, xlsx.RowError{Row: row.Row, Reason: "kayıt sorgulanamadı"})
		default:
			updates := map[string]any{
				"first_name": row.FirstName,
				"last_name":  row.LastName,
				"email":      strings.ToLower(row.Email),
				"department": row.Department,
			}
			if err := h.DB.Model(&existing).Updates(updates).Error; err != nil {
				res.Errors = append(res.Errors, xlsx.RowError{Row: row.Row, Reason: "kayıt güncellenemedi"})
				continue
			}
			res.Updated++
		}
	}
	if h.Intake != nil && res.Created > 0 {
		res.Rematched, _ = h.Intake.Rematch(id.CompanyID)
	}
	audit(h.DB, id, r, models.AuditEmployeeImport,
		fmt.Sprintf("created=%d updated=%d errors=%d", res.Created, res.Updated, len(res.Errors)))
	httpx.JSON(w, http.StatusOK, res)
}
