package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/waynerigley/migslist/apps/api/echo"
	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/bucket"
	"github.com/waynerigley/migslist/core/finance"
	"github.com/waynerigley/migslist/core/member"
	"github.com/waynerigley/migslist/core/session"
	"github.com/waynerigley/migslist/core/signup"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
	emailsvc "github.com/waynerigley/migslist/services/email"
	logsvc "github.com/waynerigley/migslist/services/logger"
	inmemdb "github.com/waynerigley/migslist/storage/database/inmem"
	"github.com/waynerigley/migslist/storage/filestore"
)

var (
	errNotAuthed   = httpErr{Error: "user not authenticated"}
	errForbidden   = httpErr{Error: "permission denied"}
	errNotFound    = httpErr{Error: "not found"}
	errSubExpired  = httpErr{Error: "subscription expired, please renew to regain access"}
	errInvalidCred = httpErr{Error: "invalid credentials"}
)

type testApp struct {
	server *Server
	conf   *core.Config

	usrRepo   user.Repository
	unionRepo union.Repository

	usrSvc     user.ServiceInterface
	sessionSvc session.ServiceInterface
	unionSvc   union.ServiceInterface
	bucketSvc  bucket.ServiceInterface
	memberSvc  member.ServiceInterface
	financeSvc finance.ServiceInterface
	signupSvc  signup.ServiceInterface
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Uploads.Dir = t.TempDir()

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	unionRepo := inmemdb.NewUnionRepository(db)

	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	usrSvc := user.NewServiceMock(conf, usrRepo, mailSvc)
	sessionSvc := session.NewService(conf, inmemdb.NewSessionRepository(db))
	unionSvc := union.NewService(conf, unionRepo)
	bucketSvc := bucket.NewService(inmemdb.NewBucketRepository(db))
	memberSvc := member.NewService(inmemdb.NewMemberRepository(db))
	financeSvc := finance.NewService(inmemdb.NewFinanceRepository(db))
	signupSvc := signup.NewService(conf, inmemdb.NewSignupRepository(db), unionSvc, usrSvc, mailSvc)

	files, err := filestore.NewStore(conf)
	if err != nil {
		t.Fatalf("filestore.NewStore() failed: %v", err)
	}

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	finance.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    usrSvc,
		SessionSvc: sessionSvc,
		UnionSvc:   unionSvc,
		BucketSvc:  bucketSvc,
		MemberSvc:  memberSvc,
		FinanceSvc: financeSvc,
		SignupSvc:  signupSvc,
		MailSvc:    mailSvc,
		Files:      files,
	})

	return &testApp{
		server:     server,
		conf:       conf,
		usrRepo:    usrRepo,
		unionRepo:  unionRepo,
		usrSvc:     usrSvc,
		sessionSvc: sessionSvc,
		unionSvc:   unionSvc,
		bucketSvc:  bucketSvc,
		memberSvc:  memberSvc,
		financeSvc: financeSvc,
		signupSvc:  signupSvc,
	}
}

// Seed helpers

func createUser(t *testing.T, app *testApp, first, last, email, pwd, role, unionID string) user.User {
	t.Helper()

	usr, err := app.usrSvc.Create(context.Background(), user.NewUser{
		FirstName:       first,
		LastName:        last,
		Email:           email,
		Role:            role,
		UnionID:         unionID,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	if err != nil {
		t.Fatalf("usrSvc.Create() failed: %v", err)
	}
	return usr
}

// createTrialUnion registers a union and opens its trial so its members pass
// the subscription gate.
func createTrialUnion(t *testing.T, app *testApp, name string) union.Union {
	t.Helper()

	un, err := app.unionSvc.Create(context.Background(), union.NewUnion{
		Name:         name,
		ContactName:  "Contact " + name,
		ContactEmail: "contact@test.cd",
	})
	if err != nil {
		t.Fatalf("unionSvc.Create() failed: %v", err)
	}
	if un, err = app.unionSvc.StartTrial(context.Background(), un.ID); err != nil {
		t.Fatalf("unionSvc.StartTrial() failed: %v", err)
	}
	return un
}

func createBucket(t *testing.T, app *testApp, unionID string, number int, name string) bucket.Bucket {
	t.Helper()

	b, err := app.bucketSvc.Create(context.Background(), unionID, bucket.NewBucket{Number: number, Name: name})
	if err != nil {
		t.Fatalf("bucketSvc.Create() failed: %v", err)
	}
	return b
}

func createMember(t *testing.T, app *testApp, bucketID, first, last, email string) member.Member {
	t.Helper()

	m, err := app.memberSvc.Create(context.Background(), bucketID, member.NewMember{
		FirstName: first,
		LastName:  last,
		Email:     email,
	})
	if err != nil {
		t.Fatalf("memberSvc.Create() failed: %v", err)
	}
	return m
}

// openSession logs the user in directly through the session service and
// returns the cookie token.
func openSession(t *testing.T, app *testApp, usr user.User) string {
	t.Helper()

	sess, err := app.sessionSvc.Create(context.Background(), usr, "")
	if err != nil {
		t.Fatalf("sessionSvc.Create() failed: %v", err)
	}
	return sess.Token
}

// Request plumbing

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "migslist_session", Value: token})
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
