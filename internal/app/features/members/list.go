// internal/app/features/members/list.go
package members

import (
	"context"
	"errors"
	"net/http"

	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/normalize"
	"github.com/dalemusser/membersverify/internal/app/system/paging"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	TotalUsers  int64           `json:"totalUsers"`
	TotalPages  int64           `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Users       []models.Member `json:"users"`
}

// param reads a list parameter from the query string, falling back to the
// path segment of the same name.
func param(r *http.Request, name string) string {
	if v := normalize.QueryParam(r.URL.Query().Get(name)); v != "" {
		return v
	}
	return normalize.QueryParam(chi.URLParam(r, name))
}

// ServeList handles GET /members and GET /getAllUsers[/...].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page := paging.ParsePage(param(r, "page"))
	filter := memberstore.ListFilter{
		Email:     param(r, "filterName"),
		AssocCode: normalize.AssocCode(param(r, "assocCode")),
	}
	switch exp := param(r, "expiringFilter"); exp {
	case memberstore.ExpiryExpired, memberstore.ExpiryExpiring, memberstore.ExpiryUnset:
		filter.Expiry = exp
	case "":
	default:
		h.ErrLog.Respond(w, r, "members: bad expiringFilter", apierr.BadRequest("expiringFilter must be expired, expiring, or setDate"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, total, err := h.Members.List(ctx, filter, page, paging.PageSize)
	if err != nil {
		h.ErrLog.Respond(w, r, "members: list", apierr.Upstream("list members", err))
		return
	}

	jsonutil.Write(w, http.StatusOK, listResponse{
		TotalUsers:  total,
		TotalPages:  paging.TotalPages(total, paging.PageSize),
		CurrentPage: page,
		Users:       users,
	})
}

// ServeMember handles GET /members/{id} and GET /getById/{id}.
func (h *Handler) ServeMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Respond(w, r, "members: get", storeErr("get member", err))
		return
	}
	jsonutil.Write(w, http.StatusOK, m)
}

// ServeAssociations handles GET /associations and GET /getAssoc.
func (h *Handler) ServeAssociations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	assocs, err := h.Members.Associations(ctx)
	if err != nil {
		h.ErrLog.Respond(w, r, "members: associations", apierr.Upstream("list associations", err))
		return
	}
	jsonutil.Write(w, http.StatusOK, map[string]any{"associations": assocs})
}

func (h *Handler) memberID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Respond(w, r, "members: bad id", apierr.BadRequest("Invalid member id"))
		return primitive.NilObjectID, false
	}
	return id, true
}

// storeErr passes the store's classified errors through and wraps anything
// else as an upstream failure.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, memberstore.ErrNotFound),
		errors.Is(err, memberstore.ErrDuplicateIdentification):
		return err
	}
	return apierr.Upstream(op, err)
}
