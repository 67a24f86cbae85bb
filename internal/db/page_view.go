package db

// PageView 是一次不可变的页面浏览记录。
// 索引覆盖按站点、按站点+页面的计数，以及去重窗口所需的 (visitor_id, created_at) 区间查询。
type PageView struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SiteID    string `gorm:"not null;index:idx_page_views_site;index:idx_page_views_site_page,priority:1"`
	PagePath  string `gorm:"not null;index:idx_page_views_site_page,priority:2"`
	VisitorID string `gorm:"not null;index:idx_page_views_visitor_time,priority:1"`
	IP        string `gorm:"not null"`
	UA        string `gorm:"not null"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:milli;index:idx_page_views_visitor_time,priority:2"`

	Site *Site `gorm:"foreignKey:SiteID;references:ID"`
}

// TableName 指定自定义表名，避免自动复数化导致的歧义。
func (PageView) TableName() string {
	return "page_views"
}
