package db

// Site 表示一个被统计的站点，ID 由调用方提供（通常为域名），首次上报时创建且不再更新。
type Site struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:milli"`
}

// TableName 指定自定义表名。
func (Site) TableName() string {
	return "sites"
}

// Visitor 记录由 IP 与 UA 派生的匿名访客，时间均为 Unix 毫秒。
type Visitor struct {
	ID        string `gorm:"primaryKey"`
	IP        string `gorm:"not null"`
	UA        string `gorm:"not null"`
	FirstSeen int64  `gorm:"not null"`
	LastSeen  int64  `gorm:"not null"`
}

// TableName 指定自定义表名。
func (Visitor) TableName() string {
	return "visitors"
}
