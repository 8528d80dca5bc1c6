package handler

import (
	"net/http"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RecordHandler handles writes to the four record collections. Every
// successful write triggers a profile recomputation through the store's
// change notice.
type RecordHandler struct {
	stores source.Stores
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(stores source.Stores) *RecordHandler {
	return &RecordHandler{stores: stores}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid id")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := DecodeJSON(r, dst); err != nil {
		return domain.ErrValidation("invalid request body: " + err.Error())
	}
	return nil
}

// --- Quests ---

type createQuestRequest struct {
	Title      string `json:"title"`
	Experience int64  `json:"experience"`
	Completed  bool   `json:"completed"`
}

// ListQuests handles GET /quests.
func (h *RecordHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	quests, err := h.stores.Quests.Quests(r.Context())
	if err != nil {
		RespondError(w, domain.ErrInternal("list quests", err))
		return
	}
	if quests == nil {
		quests = []domain.QuestRecord{}
	}
	RespondJSON(w, http.StatusOK, quests)
}

// CreateQuest handles POST /quests.
func (h *RecordHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	var req createQuestRequest
	if err := decodeBody(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	title, err := domain.ValidateTitle(req.Title)
	if err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}
	if err := domain.ValidateNonNegative("experience", req.Experience); err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}

	q, err := h.stores.Quests.AddQuest(r.Context(), domain.QuestRecord{
		Title:      title,
		Experience: req.Experience,
		Completed:  req.Completed,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, q)
}

// CompleteQuest handles POST /quests/{id}/complete.
func (h *RecordHandler) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	h.setQuestCompleted(w, r, true)
}

// ReopenQuest handles POST /quests/{id}/reopen.
func (h *RecordHandler) ReopenQuest(w http.ResponseWriter, r *http.Request) {
	h.setQuestCompleted(w, r, false)
}

func (h *RecordHandler) setQuestCompleted(w http.ResponseWriter, r *http.Request, completed bool) {
	id, err := pathID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.stores.Quests.SetQuestCompleted(r.Context(), id, completed); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteQuest handles DELETE /quests/{id}.
func (h *RecordHandler) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.stores.Quests.DeleteQuest(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Books ---

type createBookRequest struct {
	Title  string            `json:"title"`
	Status domain.BookStatus `json:"status"`
}

type updateBookRequest struct {
	Status domain.BookStatus `json:"status"`
}

// ListBooks handles GET /books.
func (h *RecordHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.stores.Books.Books(r.Context())
	if err != nil {
		RespondError(w, domain.ErrInternal("list books", err))
		return
	}
	if books == nil {
		books = []domain.BookRecord{}
	}
	RespondJSON(w, http.StatusOK, books)
}

// CreateBook handles POST /books. The status defaults to wishlist.
func (h *RecordHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := decodeBody(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	title, err := domain.ValidateTitle(req.Title)
	if err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}
	if req.Status == "" {
		req.Status = domain.BookWishlist
	}

	b, err := h.stores.Books.AddBook(r.Context(), domain.BookRecord{Title: title, Status: req.Status})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, b)
}

// UpdateBook handles PATCH /books/{id}.
func (h *RecordHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req updateBookRequest
	if err := decodeBody(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := h.stores.Books.SetBookStatus(r.Context(), id, req.Status); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBook handles DELETE /books/{id}.
func (h *RecordHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.stores.Books.DeleteBook(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Exercise ---

type createExerciseRequest struct {
	Kind            string     `json:"kind"`
	DurationMinutes int64      `json:"duration_minutes"`
	Date            *time.Time `json:"date,omitempty"`
}

// CreateExercise handles POST /exercise. The date defaults to now.
func (h *RecordHandler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	var req createExerciseRequest
	if err := decodeBody(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := domain.ValidateNonNegative("duration_minutes", req.DurationMinutes); err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}
	rec := domain.ExerciseRecord{Kind: req.Kind, DurationMinutes: req.DurationMinutes}
	if req.Date != nil {
		rec.Date = *req.Date
	}

	out, err := h.stores.Exercise.AddExercise(r.Context(), rec)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, out)
}

// DeleteExercise handles DELETE /exercise/{id}.
func (h *RecordHandler) DeleteExercise(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.stores.Exercise.DeleteExercise(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Assets ---

type createAssetRequest struct {
	Name         string `json:"name"`
	BalanceMinor int64  `json:"balance_minor"`
}

type updateAssetRequest struct {
	BalanceMinor *int64 `json:"balance_minor"`
}

// CreateAsset handles POST /assets. Balances may be negative (debts).
func (h *RecordHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := decodeBody(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	name, err := domain.ValidateTitle(req.Name)
	if err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}

	a, err := h.stores.Assets.AddAsset(r.Context(), domain.AssetRecord{Name: name, BalanceMinor: req.BalanceMinor})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, a)
}

// UpdateAsset handles PATCH /assets/{id}.
func (h *RecordHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req updateAssetRequest
	if err := decodeBody(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.BalanceMinor == nil {
		RespondError(w, domain.ErrValidation("balance_minor is required"))
		return
	}
	if err := h.stores.Assets.SetAssetBalance(r.Context(), id, *req.BalanceMinor); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAsset handles DELETE /assets/{id}.
func (h *RecordHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.stores.Assets.DeleteAsset(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
