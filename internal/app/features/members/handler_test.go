package members_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	"github.com/dalemusser/membersverify/internal/app/features/members"
	"github.com/dalemusser/membersverify/internal/app/store/audit"
	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/metrics"
	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/dalemusser/membersverify/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	h   *members.Handler
	fx  *testutil.Fixtures
	m   *metrics.Metrics
	ctx context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	m := metrics.New()
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Admin: auditlog.DB})
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	return &env{
		h:   members.NewHandler(db, m, uierrors.NewErrorLogger(logger), al, logger),
		fx:  testutil.NewFixtures(t, db),
		m:   m,
		ctx: ctx,
	}
}

// serve routes req through the feature router as a signed-in admin.
func (e *env) serve(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	members.Routes(e.h).ServeHTTP(rec, testutil.WithAdmin(req))
	return rec
}

func (e *env) count(filter bson.M) int64 {
	n, err := e.fx.DB().Collection("members").CountDocuments(e.ctx, filter)
	if err != nil {
		panic(err)
	}
	return n
}

func TestServeList_PaginatesAndSorts(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 25; i++ {
		e.fx.CreateMember(e.ctx, "OAK", fmt.Sprintf("m%02d@example.com", i), func(m *models.Member) {
			m.Association = fmt.Sprintf("Assoc %02d", 24-i)
		})
	}

	rec := e.serve(testutil.NewRequest(http.MethodGet, "/members?page=1"))
	rec.AssertStatus(t, http.StatusOK)
	body := rec.DecodeJSON(t)
	if body["totalUsers"] != float64(25) || body["totalPages"] != float64(2) || body["currentPage"] != float64(1) {
		t.Fatalf("unexpected paging: %v", body)
	}
	users := body["users"].([]any)
	if len(users) != 5 {
		t.Fatalf("page 1 has %d users, want 5", len(users))
	}
	if first := users[0].(map[string]any)["association"]; first != "Assoc 20" {
		t.Errorf("first association on page 1 = %v, want Assoc 20", first)
	}
}

func TestServeList_Filters(t *testing.T) {
	e := newEnv(t)
	today := time.Now().UTC()
	e.fx.CreateMember(e.ctx, "OAK", "alice@example.com", func(m *models.Member) {
		m.TermEnd = testutil.TimePtr(today.AddDate(0, 0, -3))
	})
	e.fx.CreateMember(e.ctx, "OAK", "bob@example.com", func(m *models.Member) {
		m.TermEnd = testutil.TimePtr(today.AddDate(0, 0, 2))
	})
	e.fx.CreateMember(e.ctx, "PINE", "alice.p@example.com")

	cases := []struct {
		target string
		want   float64
	}{
		{"/members?filterName=ALICE", 2},
		{"/members?filterName=alice&assocCode=OAK", 1},
		{"/members?expiringFilter=expired", 1},
		{"/members?expiringFilter=expiring", 1},
		{"/members?expiringFilter=setDate", 1},
		{"/members?assocCode=null&filterName=undefined", 3},
		{"/members?filterName=a.p", 1},
		{"/getAllUsers/0/null/PINE", 1},
		{"/getAllUsers/0/bob/OAK/expiring", 1},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rec := e.serve(testutil.NewRequest(http.MethodGet, tc.target))
			rec.AssertStatus(t, http.StatusOK)
			if got := rec.DecodeJSON(t)["totalUsers"]; got != tc.want {
				t.Errorf("totalUsers = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestServeList_BadExpiringFilter(t *testing.T) {
	e := newEnv(t)
	rec := e.serve(testutil.NewRequest(http.MethodGet, "/members?expiringFilter=soon"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeMember(t *testing.T) {
	e := newEnv(t)
	m := e.fx.CreateMember(e.ctx, "OAK", "a@example.com")

	rec := e.serve(testutil.NewRequest(http.MethodGet, "/getById/"+m.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"primaryEmail":"a@example.com"`)

	rec = e.serve(testutil.NewRequest(http.MethodGet, "/members/"+primitive.NewObjectID().Hex()))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, "User not found")

	rec = e.serve(testutil.NewRequest(http.MethodGet, "/members/not-hex"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdate(t *testing.T) {
	e := newEnv(t)
	m := e.fx.CreateMember(e.ctx, "OAK", "a@example.com")

	rec := e.serve(testutil.NewJSONRequest(http.MethodPut, "/update/"+m.ID.Hex(), map[string]any{
		"firstName":    "Ada",
		"primaryEmail": " ADA@Example.com ",
		"termEnd":      "2026-12-31",
		"emailSent":    true,
		"verified":     true,
	}))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "updated successfully")

	got, err := memberstore.New(e.fx.DB()).GetByID(e.ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FirstName != "Ada" || got.PrimaryEmail != "ada@example.com" || !got.EmailSent {
		t.Errorf("update not applied: %+v", got)
	}
	if got.Verified {
		t.Error("verified must not be settable through an admin edit")
	}
	if got.TermEnd == nil || !got.TermEnd.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("termEnd = %v", got.TermEnd)
	}

	if n, _ := e.fx.DB().Collection("audit_events").CountDocuments(e.ctx, bson.M{"event_type": audit.EventMemberUpdated}); n != 1 {
		t.Errorf("member_updated events = %d, want 1", n)
	}
}

func TestHandleUpdate_Invalid(t *testing.T) {
	e := newEnv(t)
	m := e.fx.CreateMember(e.ctx, "OAK", "a@example.com")

	rec := e.serve(testutil.NewJSONRequest(http.MethodPut, "/update/"+m.ID.Hex(), map[string]any{"primaryEmail": "nope"}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "primaryEmail")

	rec = e.serve(testutil.NewJSONRequest(http.MethodPut, "/update/"+m.ID.Hex(), map[string]any{"termEnd": "31/12/2026"}))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = e.serve(testutil.NewJSONRequest(http.MethodPut, "/update/"+m.ID.Hex(), map[string]any{"firstName": 12}))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = e.serve(testutil.NewJSONRequest(http.MethodPut, "/update/"+primitive.NewObjectID().Hex(), map[string]any{"firstName": "x"}))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleDelete(t *testing.T) {
	e := newEnv(t)
	m := e.fx.CreateMember(e.ctx, "OAK", "a@example.com")

	rec := e.serve(testutil.NewRequest(http.MethodDelete, "/deleteUser/"+m.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "User deleted successfully")
	if n := e.count(bson.M{}); n != 0 {
		t.Errorf("members left = %d, want 0", n)
	}

	rec = e.serve(testutil.NewRequest(http.MethodDelete, "/members/"+m.ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeAssociations(t *testing.T) {
	e := newEnv(t)
	e.fx.CreateMember(e.ctx, "PINE", "a@example.com")
	e.fx.CreateMember(e.ctx, "OAK", "b@example.com")
	e.fx.CreateMember(e.ctx, "OAK", "c@example.com")

	rec := e.serve(testutil.NewRequest(http.MethodGet, "/getAssoc"))
	rec.AssertStatus(t, http.StatusOK)
	assocs := rec.DecodeJSON(t)["associations"].([]any)
	if len(assocs) != 2 {
		t.Fatalf("got %d associations, want 2", len(assocs))
	}
	first := assocs[0].(map[string]any)
	if first["assocCode"] != "OAK" || first["members"] != float64(2) {
		t.Errorf("first association = %v", first)
	}
}

func TestHandleUpload_JSONRows(t *testing.T) {
	e := newEnv(t)
	rows := []map[string]any{
		{"Assoc Code": "OAK", "Association": "Oak Hills HOA", "First Name": "Ada", "Last Name": "Lovelace",
			"Primary Email": "ADA@example.com", "Term End": 45838},
		{"Assoc Code": "OAK", "Association": "Oak Hills HOA", "First Name": "Alan", "Primary Email": "alan@example.com"},
		{},
	}

	rec := e.serve(testutil.NewJSONRequest(http.MethodPost, "/list-upload", rows))
	rec.AssertStatus(t, http.StatusOK)
	body := rec.DecodeJSON(t)
	if body["message"] != "2 new entries added successfully." || body["totalEntries"] != float64(3) {
		t.Errorf("unexpected body: %v", body)
	}

	var m models.Member
	if err := e.fx.DB().Collection("members").FindOne(e.ctx, bson.M{"primary_email": "ada@example.com"}).Decode(&m); err != nil {
		t.Fatalf("imported member not found: %v", err)
	}
	if m.UniqueID == "" || m.TermEnd == nil || m.TermEnd.Format("2006-01-02") != "2025-06-30" {
		t.Errorf("imported member = %+v", m)
	}
	if got := promtest.ToFloat64(e.m.RosterRows); got != 2 {
		t.Errorf("roster rows metric = %v, want 2", got)
	}
}

func TestHandleUpload_RejectsInvalidRows(t *testing.T) {
	e := newEnv(t)
	rows := []map[string]any{
		{"Assoc Code": "OAK", "Primary Email": "ok@example.com"},
		{"Assoc Code": "OAK", "Primary Email": "not-an-email"},
	}

	rec := e.serve(testutil.NewJSONRequest(http.MethodPost, "/list-upload", rows))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "line 2")
	if n := e.count(bson.M{}); n != 0 {
		t.Errorf("rows inserted despite rejection: %d", n)
	}
}

func multipartFile(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write(content)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/list-upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload_CSV(t *testing.T) {
	e := newEnv(t)
	csv := "\ufeffAssoc Code,Association,First Name,Primary Email\nOAK,Oak Hills,Ada,ada@example.com\nPINE,Pine Ridge,Alan,alan@example.com\n"

	rec := e.serve(multipartFile(t, "roster.csv", []byte(csv)))
	rec.AssertStatus(t, http.StatusOK)
	if n := e.count(bson.M{"assoc_code": "PINE"}); n != 1 {
		t.Errorf("PINE members = %d, want 1", n)
	}
}

func TestHandleUpload_XLSX(t *testing.T) {
	e := newEnv(t)
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]any{"Assoc Code", "First Name", "Primary Email", "Term Start"})
	f.SetSheetRow(sheet, "A2", &[]any{"OAK", "Ada", "ada@example.com", 45838})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rec := e.serve(multipartFile(t, "roster.xlsx", buf.Bytes()))
	rec.AssertStatus(t, http.StatusOK)

	var m models.Member
	if err := e.fx.DB().Collection("members").FindOne(e.ctx, bson.M{"primary_email": "ada@example.com"}).Decode(&m); err != nil {
		t.Fatalf("imported member not found: %v", err)
	}
	if m.TermStart == nil || m.TermStart.Format("2006-01-02") != "2025-06-30" {
		t.Errorf("termStart = %v", m.TermStart)
	}
}

func TestHandleUpload_UnsupportedFile(t *testing.T) {
	e := newEnv(t)
	rec := e.serve(multipartFile(t, "roster.txt", []byte("hello")))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, ".xlsx or .csv")
}
