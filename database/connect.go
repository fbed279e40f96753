package database

import (
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anuragrao04/classroom-attendance/models"
	"github.com/anuragrao04/classroom-attendance/realtime"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrSessionNotActive = errors.New("session is not active")
	ErrRollOutOfRange   = errors.New("roll number is outside the class roster")
	ErrSessionExists    = errors.New("a session already exists for this class on that date")
	ErrAlreadyMarked    = errors.New("roll number is already marked present")
)

type Options struct {
	Driver string
	DSN    string
	Clock  clock.Clock
	Hub    *realtime.Hub
	Log    *logrus.Entry
}

// Store is the backing data service: table access, the single-row code
// update, the uniqueness-enforcing attendance insert and the change feed.
type Store struct {
	db    *gorm.DB
	hub   *realtime.Hub
	clock clock.Clock
	log   *logrus.Entry
}

func Connect(opts Options) (*Store, error) {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Hub == nil {
		opts.Hub = realtime.NewHub(opts.Log)
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "", DriverSQLite:
		opts.Driver = DriverSQLite
		dialector = sqlite.Open(sqliteDSN(opts.DSN))
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, errors.Errorf("unsupported database driver %q", opts.Driver)
	}

	clk := opts.Clock
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  NewGormLogger(opts.Log),
		NowFunc: func() time.Time { return clk.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s database", opts.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if opts.Driver == DriverSQLite {
		// one writer at a time; in-memory databases also live on a single connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	opts.Log.WithField("driver", opts.Driver).Info("connected to database")
	return &Store{db: db, hub: opts.Hub, clock: opts.Clock, log: opts.Log}, nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "attendance.db"
	}
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func (s *Store) Migrate() error {
	return errors.WithStack(s.db.AutoMigrate(
		&models.Faculty{},
		&models.Class{},
		&models.Session{},
		&models.AttendanceRecord{},
	))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(sqlDB.Close())
}

// Subscribe delivers every attendance record inserted for sessionID from now on.
func (s *Store) Subscribe(sessionID uint) *realtime.Subscription {
	return s.hub.Subscribe(sessionID)
}

func (s *Store) today() string {
	return s.clock.Now().UTC().Format(models.DateLayout)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrapf(err, "failed to find %s", what)
}
