package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

const defaultDatabasePath = "data/statlite.sqlite"

// sqlitePragmas 为每个连接开启 WAL、外键约束与忙等待，写事务进行中时读查询不会被阻塞。
const sqlitePragmas = "_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"

// Init 初始化全局数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 data/statlite.sqlite。
func Init(databasePath string) error {
	gdb, err := Open(databasePath, logger.Default.LogMode(logger.Warn))
	if err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open 打开数据库文件并确保表结构存在，不修改全局实例。
func Open(databasePath string, log logger.Interface) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = defaultDatabasePath
	}

	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{Logger: log})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate 幂等地创建 sites、visitors、page_views 三张表及其索引。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&Site{},
		&Visitor{},
		&PageView{},
	)
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
