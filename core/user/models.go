package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/waynerigley/migslist/core"
)

// bcryptCost is deliberately above bcrypt.DefaultCost; hashes from the
// previous system were generated with cost 12 and must keep verifying.
const bcryptCost = 12

// Roles
const (
	RoleSuperAdmin  = "super_admin"
	RolePresident   = "union_president"
	RoleSecretary   = "union_secretary"
	legacyRoleAdmin = "union_admin" // pre-rename records; read as president
)

var (
	AllRoles = []string{RoleSuperAdmin, RolePresident, RoleSecretary}

	rolePriorities = map[string]int{
		RoleSuperAdmin: 30,
		RolePresident:  20,
		RoleSecretary:  10,
	}

	Roles = []Role{
		{Name: "Union Secretary", Value: RoleSecretary},
		{Name: "Union President", Value: RolePresident},
		{Name: "Super Admin", Value: RoleSuperAdmin},
	}
)

// NormalizeRole maps legacy role names onto the current set.
func NormalizeRole(role string) string {
	if role == legacyRoleAdmin {
		return RolePresident
	}
	return role
}

func RolePriority(role string) int {
	return rolePriorities[NormalizeRole(role)]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	Role         string    `json:"role" db:"role"`
	UnionID      string    `json:"union_id,omitempty" db:"union_id"`
	IsActive     *bool     `json:"is_active" db:"is_active"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) Subject() Subject {
	return Subject{UserID: u.ID, Role: NormalizeRole(u.Role), UnionID: u.UnionID}
}

// Subject is the authorization view of an authenticated user. All access
// decisions go through its predicates; handlers never inspect roles directly.
type Subject struct {
	UserID  string
	Role    string
	UnionID string
}

func (s Subject) IsSuperAdmin() bool { return s.Role == RoleSuperAdmin }
func (s Subject) IsPresident() bool  { return NormalizeRole(s.Role) == RolePresident }
func (s Subject) IsSecretary() bool  { return s.Role == RoleSecretary }

// CanManageUnion reports whether the subject may act on resources belonging
// to the given union. Super admins may act on any union; union roles only on
// their own.
func (s Subject) CanManageUnion(unionID string) bool {
	if s.IsSuperAdmin() {
		return true
	}
	return s.UnionID != "" && s.UnionID == unionID
}

// CanManageTeam reports whether the subject may add or remove users of the
// given union. Secretaries cannot.
func (s Subject) CanManageTeam(unionID string) bool {
	if s.IsSuperAdmin() {
		return true
	}
	return s.IsPresident() && s.UnionID == unionID
}

// CanDeleteBuckets reports whether the subject may soft delete, hard delete
// or restore buckets of the given union. Secretaries cannot.
func (s Subject) CanDeleteBuckets(unionID string) bool {
	if s.IsSuperAdmin() {
		return true
	}
	return s.IsPresident() && s.UnionID == unionID
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,approle"`
	UnionID         string `json:"union_id" validate:"required_unless=Role super_admin"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = NormalizeRole(core.CleanString(nu.Role, true /* lower */))

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// NewTeamMember is the president-facing variant of NewUser: the union is
// implied and the password is generated.
type NewTeamMember struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required,unionrole"`
}

func (nm *NewTeamMember) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nm.FirstName = core.CleanString(nm.FirstName)
	nm.LastName = core.CleanString(nm.LastName)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Role = NormalizeRole(core.CleanString(nm.Role, true /* lower */))

	if err := validate.Struct(nm); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nm.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"omitempty,approle"`
	UnionID         string `json:"union_id"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	uu.FirstName = core.CleanString(uu.FirstName)
	uu.LastName = core.CleanString(uu.LastName)
	if uu.FirstName == "" {
		uu.FirstName = origUsr.FirstName
	}
	if uu.LastName == "" {
		uu.LastName = origUsr.LastName
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Role != "" {
		uu.Role = NormalizeRole(core.CleanString(uu.Role, true /* lower */))
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(uu.Email, origUsr)
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}
