package inmemdb

import (
	"sync"

	"github.com/waynerigley/migslist/core/bucket"
	"github.com/waynerigley/migslist/core/finance"
	"github.com/waynerigley/migslist/core/member"
	"github.com/waynerigley/migslist/core/session"
	"github.com/waynerigley/migslist/core/signup"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
)

// DB is a mutex guarded map store implementing every repository, used by
// tests and local development without postgres.
type DB struct {
	user    *userTable
	session *sessionTable
	union   *unionTable
	bucket  *bucketTable
	member  *memberTable
	finance *financeTable
	signup  *signupTable
}

type (
	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}
	sessionTable struct {
		table map[string]*session.Session
		mutex sync.RWMutex
	}
	unionTable struct {
		table map[string]*union.Union
		mutex sync.RWMutex
	}
	bucketTable struct {
		table map[string]*bucket.Bucket
		mutex sync.RWMutex
	}
	memberTable struct {
		table map[string]*member.Member
		mutex sync.RWMutex
	}
	financeTable struct {
		incomes  map[string]*finance.Income
		expenses map[string]*finance.Expense
		invoices map[string]*finance.Invoice
		counters map[int]int // per-year invoice sequence
		mutex    sync.RWMutex
	}
	signupTable struct {
		table map[string]*signup.Request
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		session: &sessionTable{table: make(map[string]*session.Session)},
		union:   &unionTable{table: make(map[string]*union.Union)},
		bucket:  &bucketTable{table: make(map[string]*bucket.Bucket)},
		member:  &memberTable{table: make(map[string]*member.Member)},
		finance: &financeTable{
			incomes:  make(map[string]*finance.Income),
			expenses: make(map[string]*finance.Expense),
			invoices: make(map[string]*finance.Invoice),
			counters: make(map[int]int),
		},
		signup: &signupTable{table: make(map[string]*signup.Request)},
	}
}
