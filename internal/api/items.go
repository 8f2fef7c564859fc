package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/errs"
	"github.com/erazemk/auditit/internal/imaging"
	"github.com/erazemk/auditit/internal/lifecycle"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/photos"
	"github.com/erazemk/auditit/internal/store"
)

// ItemsHandler handles item queries and lifecycle endpoints.
type ItemsHandler struct {
	DB     *sqlx.DB
	Engine *lifecycle.Engine
	Photos photos.Store
	Images imaging.Processor
	Log    *zap.Logger
}

type outboundRequest struct {
	Destination string `json:"destination" validate:"required,max=500"`
}

type disposeRequest struct {
	Destination string `json:"destination" validate:"max=500"`
}

type transferRequest struct {
	NewWarehouseID int64  `json:"newWarehouseId" validate:"required,gt=0"`
	Remarks        string `json:"remarks" validate:"max=500"`
}

type batchEntryRequest struct {
	ShortID string `json:"shortId" validate:"max=50"`
	Remarks string `json:"remarks" validate:"max=500"`
}

type createBatchRequest struct {
	ItemDefinitionID int64               `json:"itemDefinitionId" validate:"required,gt=0"`
	WarehouseID      int64               `json:"warehouseId" validate:"required,gt=0"`
	Items            []batchEntryRequest `json:"items" validate:"required,min=1,dive"`
}

type statusBatchRequest struct {
	ItemIDs     []uuid.UUID `json:"itemIds" validate:"required,min=1"`
	Status      string      `json:"status" validate:"required"`
	Destination string      `json:"destination" validate:"max=500"`
}

// List handles GET /api/items?warehouseId=&status=&id=&shortId=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.ItemFilter

	if v := q.Get("warehouseId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid warehouseId")
			return
		}
		f.WarehouseID = id
	}
	if v := q.Get("status"); v != "" {
		status, ok := model.ParseItemStatus(v)
		if !ok {
			jsonError(w, http.StatusBadRequest, "invalid status")
			return
		}
		f.Status = status
	}
	if v := q.Get("id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid id")
			return
		}
		f.ID = id
	}
	f.ShortID = strings.TrimSpace(q.Get("shortId"))

	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// GetBatch handles POST /api/items/batch with a JSON array of item ids.
// Unknown ids are skipped.
func (h *ItemsHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	var ids []uuid.UUID
	if err := decodeJSON(r, &ids); err != nil {
		jsonError(w, http.StatusBadRequest, "request body must be an array of item ids")
		return
	}
	if len(ids) == 0 {
		writeError(w, h.Log, errs.Validation("no item ids provided"))
		return
	}

	items, err := store.GetItemsByIDs(r.Context(), h.DB, ids)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items/create (multipart: itemDefinitionId,
// warehouseId, shortId, remarks, photo).
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		writeError(w, h.Log, err)
		return
	}

	defID, err := formID(r, "itemDefinitionId")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	whID, err := formID(r, "warehouseId")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	in := lifecycle.CreateItem{
		DefinitionID: defID,
		WarehouseID:  whID,
		ShortID:      r.FormValue("shortId"),
		Remarks:      formOptional(r, "remarks"),
	}

	url, err := h.savePhoto(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if url != "" {
		in.PhotoURL = &url
	}

	item, err := h.Engine.Create(r.Context(), in)
	if err != nil {
		h.discardPhoto(r.Context(), url)
		writeError(w, h.Log, err)
		return
	}

	h.Log.Info("item created",
		zap.String("user", auth.ActorFrom(r.Context())),
		zap.String("item", item.ID.String()),
		zap.String("short_id", item.ShortID),
	)
	jsonResponse(w, http.StatusCreated, item)
}

// CreateBatch handles POST /api/items/create/batch.
func (h *ItemsHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	entries := make([]lifecycle.BatchEntry, len(req.Items))
	for i, it := range req.Items {
		entries[i] = lifecycle.BatchEntry{ShortID: it.ShortID, Remarks: optionalString(it.Remarks)}
	}

	items, err := h.Engine.CreateBatch(r.Context(), req.ItemDefinitionID, req.WarehouseID, entries)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.Log.Info("items created", zap.String("user", auth.ActorFrom(r.Context())), zap.Int("count", len(items)))
	jsonResponse(w, http.StatusCreated, items)
}

// Update handles PUT /api/items/{id} (multipart: remarks, photo, deletePhoto).
// It edits details only and records no lifecycle event.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.parseMultipart(w, r); err != nil {
		writeError(w, h.Log, err)
		return
	}

	var u lifecycle.DetailsUpdate
	if vals, ok := r.MultipartForm.Value["remarks"]; ok && len(vals) > 0 {
		remarks := vals[0]
		u.Remarks = &remarks
	}
	u.ClearPhoto, _ = strconv.ParseBool(r.FormValue("deletePhoto"))

	url, err := h.savePhoto(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if url != "" {
		u.PhotoURL = &url
	}

	item, replaced, err := h.Engine.UpdateDetails(r.Context(), id, u)
	if err != nil {
		h.discardPhoto(r.Context(), url)
		writeError(w, h.Log, err)
		return
	}
	if replaced != "" && replaced != url {
		h.discardPhoto(r.Context(), replaced)
	}

	jsonResponse(w, http.StatusOK, item)
}

// Outbound handles PUT /api/items/{id}/outbound.
func (h *ItemsHandler) Outbound(w http.ResponseWriter, r *http.Request) {
	var req outboundRequest
	h.transition(w, r, &req, func(ctx context.Context, id uuid.UUID) (*model.Item, error) {
		return h.Engine.Outbound(ctx, id, req.Destination)
	})
}

// Check handles PUT /api/items/{id}/check.
func (h *ItemsHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, h.Engine.Check)
}

// Return handles PUT /api/items/{id}/return.
func (h *ItemsHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, h.Engine.Return)
}

// Dispose handles PUT /api/items/{id}/dispose.
func (h *ItemsHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	var req disposeRequest
	h.transition(w, r, &req, func(ctx context.Context, id uuid.UUID) (*model.Item, error) {
		return h.Engine.Dispose(ctx, id, req.Destination)
	})
}

// Transfer handles PUT /api/items/{id}/transfer.
func (h *ItemsHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	h.transition(w, r, &req, func(ctx context.Context, id uuid.UUID) (*model.Item, error) {
		return h.Engine.Transfer(ctx, id, req.NewWarehouseID, req.Remarks)
	})
}

// transition parses the item id and optional request body, then runs apply.
func (h *ItemsHandler) transition(w http.ResponseWriter, r *http.Request, req any,
	apply func(context.Context, uuid.UUID) (*model.Item, error)) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if req != nil {
		if err := bind(r, req); err != nil {
			writeError(w, h.Log, err)
			return
		}
	}

	item, err := apply(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// UpdateStatusBatch handles POST /api/items/update-status/batch.
func (h *ItemsHandler) UpdateStatusBatch(w http.ResponseWriter, r *http.Request) {
	var req statusBatchRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	status, ok := model.ParseItemStatus(req.Status)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := h.Engine.UpdateStatusBatch(r.Context(), req.ItemIDs, status, req.Destination)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.Log.Info("item statuses updated",
		zap.String("user", auth.ActorFrom(r.Context())),
		zap.String("status", string(status)),
		zap.Int("count", len(items)),
	)
	jsonResponse(w, http.StatusOK, items)
}

// parseMultipart limits the body to the photo size limit plus room for the
// text fields.
func (h *ItemsHandler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := h.Images.MaxBytes
	if limit <= 0 {
		limit = imaging.DefaultMaxBytes
	}
	limit += 1 << 20

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return errs.Validation("file too large or invalid multipart form")
	}
	return nil
}

// savePhoto processes and stores the uploaded "photo" file. It returns ""
// when no photo was sent.
func (h *ItemsHandler) savePhoto(r *http.Request) (string, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", errs.Validation("invalid photo upload")
	}
	defer file.Close()

	if h.Photos == nil {
		return "", errs.Validation("photo storage is not configured")
	}

	photo, err := h.Images.Process(file)
	if err != nil {
		return "", err
	}

	url, err := h.Photos.Save(r.Context(), header.Filename, photo.ContentType, photo.Data)
	if err != nil {
		return "", err
	}
	return url, nil
}

// discardPhoto deletes a stored photo. Failures are logged, not returned.
func (h *ItemsHandler) discardPhoto(ctx context.Context, url string) {
	if url == "" || h.Photos == nil {
		return
	}
	if err := h.Photos.Delete(ctx, url); err != nil {
		h.Log.Warn("deleting photo", zap.String("url", url), zap.Error(err))
	}
}

func formID(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return 0, errs.Validation("%s is required", name)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid %s", name)
	}
	return id, nil
}

func formOptional(r *http.Request, name string) *string {
	return optionalString(r.FormValue(name))
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
