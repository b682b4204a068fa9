package datastore

import (
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// MySQLStore implements Interface for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// dsn builds the connection string with mysql.Config so passwords holding
// '@', ':' or '/' and IPv6 hosts parse back unchanged.
func (store *MySQLStore) dsn() string {
	m := store.Settings.Datastore.MySQL
	cfg := mysqldriver.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, m.Port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to the server and migrates the schema.
func (store *MySQLStore) Open() error {
	m := store.Settings.Datastore.MySQL

	db, err := gorm.Open(mysql.Open(store.dsn()), newGormConfig())
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.String("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return dbError(err, "open").
			Context("db_type", "mysql").
			Context("host", m.Host).
			Context("database", m.Database).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, "mysql")
}

// Close closes the connection pool.
func (store *MySQLStore) Close() error {
	return store.closeDB()
}
