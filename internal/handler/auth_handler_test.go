package handler

import (
	"encoding/json"
	"testing"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/pkg/jwtutil"
	"golang.org/x/crypto/bcrypt"
)

func initAuthTest() *jwtutil.JWTUtil {
	util := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-secret", ExpirationHours: 1})
	InitAuthHandler(util)
	return util
}

func TestSignupAndLogin(t *testing.T) {
	db := newTestDB(t)
	util := initAuthTest()

	c, rec := newUnauthedContext(t, "POST", "/auth/signup",
		`{"email":"jo@example.com","password":"hunter22","name":"Jo"}`)
	if err := Signup(c); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if rec.Code != 201 {
		t.Fatalf("signup status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var user model.User
	if err := db.Where("email = ?", "jo@example.com").First(&user).Error; err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if user.Password == "hunter22" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("hunter22")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	c, rec = newUnauthedContext(t, "POST", "/auth/login",
		`{"email":"jo@example.com","password":"hunter22"}`)
	if err := Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := util.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Email != "jo@example.com" || claims.UserID != user.ID {
		t.Errorf("claims = %+v", claims)
	}
	if claims.WorkspaceID != nil {
		t.Errorf("expected no workspace context, got %d", *claims.WorkspaceID)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	initAuthTest()

	if err := db.Create(&model.User{Email: "taken@example.com", Password: "x"}).Error; err != nil {
		t.Fatal(err)
	}

	c, rec := newUnauthedContext(t, "POST", "/auth/signup",
		`{"email":"taken@example.com","password":"secret"}`)
	if err := Signup(c); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if rec.Code != 409 {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := newTestDB(t)
	initAuthTest()

	hashed, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err := db.Create(&model.User{Email: "jo@example.com", Password: string(hashed)}).Error; err != nil {
		t.Fatal(err)
	}

	c, rec := newUnauthedContext(t, "POST", "/auth/login",
		`{"email":"jo@example.com","password":"wrong"}`)
	if err := Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != 401 {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginWithWorkspace(t *testing.T) {
	db := newTestDB(t)
	util := initAuthTest()
	workspace, user := seedWorkspaceUser(t, db)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err := db.Model(user).Update("password", string(hashed)).Error; err != nil {
		t.Fatal(err)
	}

	c, rec := newUnauthedContext(t, "POST", "/auth/login",
		`{"email":"admin@example.com","password":"secret","workspace_id":`+jsonUint(workspace.ID)+`}`)
	if err := Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	claims, err := util.ValidateToken(resp.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.WorkspaceID == nil || *claims.WorkspaceID != workspace.ID {
		t.Fatalf("workspace claim = %v", claims.WorkspaceID)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q", claims.Role)
	}
	if claims.WorkspaceName != workspace.Name {
		t.Errorf("workspace name = %q", claims.WorkspaceName)
	}
}

func TestLoginForeignWorkspaceDenied(t *testing.T) {
	db := newTestDB(t)
	initAuthTest()
	seedWorkspaceUser(t, db)

	other := model.Workspace{Name: "other", Active: true}
	if err := db.Create(&other).Error; err != nil {
		t.Fatal(err)
	}
	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err := db.Model(&model.User{}).Where("email = ?", "admin@example.com").
		Update("password", string(hashed)).Error; err != nil {
		t.Fatal(err)
	}

	c, rec := newUnauthedContext(t, "POST", "/auth/login",
		`{"email":"admin@example.com","password":"secret","workspace_id":`+jsonUint(other.ID)+`}`)
	if err := Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != 403 {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
