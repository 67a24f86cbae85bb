package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/statlite/internal/db"
	"github.com/statlite/internal/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultViewDedupWindow = 30 * time.Second

// ErrInvalidTrackEvent 表示上报事件缺少站点或页面。
var ErrInvalidTrackEvent = errors.New("invalid track event")

// TrackEvent 描述一次页面浏览上报。
type TrackEvent struct {
	Site      string
	Page      string
	IP        string
	UserAgent string
}

// Summary 是站点维度的聚合计数，PagePV 仅在指定页面时有值。
type Summary struct {
	TotalPV int64
	TotalUV int64
	PagePV  *int64
}

// StatsService 负责页面浏览的写入与聚合查询。
//
// 写入通过 WriteQueue 异步执行，聚合查询直接读取已提交的数据，
// 因此 Track 返回的计数可能尚未包含本次事件。
type StatsService struct {
	db          *gorm.DB
	writes      *WriteQueue
	clock       quartz.Clock
	dedupWindow time.Duration
}

// NewStatsService 创建 StatsService，默认去重窗口为 30 秒。
func NewStatsService(gdb *gorm.DB, writes *WriteQueue) *StatsService {
	return &StatsService{
		db:          gdb,
		writes:      writes,
		clock:       quartz.NewReal(),
		dedupWindow: defaultViewDedupWindow,
	}
}

// WithDedupWindow 允许在测试或特定场景下调整去重窗口。
func (s *StatsService) WithDedupWindow(d time.Duration) *StatsService {
	if d <= 0 {
		return s
	}
	s.dedupWindow = d
	return s
}

// WithClock 替换时间来源。
func (s *StatsService) WithClock(clock quartz.Clock) *StatsService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Track 将本次浏览写入队列，并立即返回站点与页面的当前计数。
func (s *StatsService) Track(event TrackEvent) (Summary, error) {
	if err := s.Record(event, s.clock.Now()); err != nil {
		return Summary{}, err
	}
	return s.Summary(event.Site, event.Page)
}

// Record 将指定时间发生的浏览写入队列，不读取计数。
func (s *StatsService) Record(event TrackEvent, at time.Time) error {
	if event.Site == "" || event.Page == "" {
		return ErrInvalidTrackEvent
	}

	ip := event.IP
	if ip == "" {
		ip = UnknownClientIP
	}

	view := db.PageView{
		SiteID:    event.Site,
		PagePath:  event.Page,
		VisitorID: ComputeVisitorID(ip, event.UserAgent),
		IP:        ip,
		UA:        event.UserAgent,
		CreatedAt: at.UnixMilli(),
	}
	s.writes.Enqueue(s.recordPageViewJob(view))
	metrics.TrackEvents.Inc()
	return nil
}

// recordPageViewJob 在同一事务内依次确保站点存在、更新访客、按去重窗口插入浏览记录。
// 依赖单写者队列保证 check-then-insert 不会并发交错。
func (s *StatsService) recordPageViewJob(view db.PageView) WriteJob {
	windowStart := view.CreatedAt - s.dedupWindow.Milliseconds()

	return func(tx *gorm.DB) error {
		site := db.Site{ID: view.SiteID, CreatedAt: view.CreatedAt}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&site).Error; err != nil {
			return fmt.Errorf("upsert site: %w", err)
		}

		visitor := db.Visitor{
			ID:        view.VisitorID,
			IP:        view.IP,
			UA:        view.UA,
			FirstSeen: view.CreatedAt,
			LastSeen:  view.CreatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_seen": gorm.Expr("MAX(visitors.last_seen, excluded.last_seen)"),
			}),
		}).Create(&visitor).Error; err != nil {
			return fmt.Errorf("upsert visitor: %w", err)
		}

		var recent int64
		if err := tx.Model(&db.PageView{}).
			Where("site_id = ? AND page_path = ? AND visitor_id = ? AND created_at > ?",
				view.SiteID, view.PagePath, view.VisitorID, windowStart).
			Count(&recent).Error; err != nil {
			return fmt.Errorf("check recent page view: %w", err)
		}
		if recent > 0 {
			return nil
		}

		if err := tx.Omit(clause.Associations).Create(&view).Error; err != nil {
			return fmt.Errorf("insert page view: %w", err)
		}
		return nil
	}
}

// Summary 汇总站点的 PV/UV，page 非空时附带该页面的 PV。
func (s *StatsService) Summary(site, page string) (Summary, error) {
	var summary Summary

	totalPV, err := s.TotalPageViews(site)
	if err != nil {
		return summary, err
	}
	summary.TotalPV = totalPV

	totalUV, err := s.TotalUniqueVisitors(site)
	if err != nil {
		return summary, err
	}
	summary.TotalUV = totalUV

	if page != "" {
		pagePV, err := s.PageViews(site, page)
		if err != nil {
			return summary, err
		}
		summary.PagePV = &pagePV
	}

	return summary, nil
}

// TotalPageViews 统计站点的浏览记录数。
func (s *StatsService) TotalPageViews(site string) (int64, error) {
	var count int64
	if err := s.db.Model(&db.PageView{}).Where("site_id = ?", site).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count page views: %w", err)
	}
	return count, nil
}

// TotalUniqueVisitors 统计站点浏览记录中不同访客的数量。
func (s *StatsService) TotalUniqueVisitors(site string) (int64, error) {
	var count int64
	if err := s.db.Model(&db.PageView{}).Where("site_id = ?", site).Distinct("visitor_id").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count unique visitors: %w", err)
	}
	return count, nil
}

// PageViews 统计站点下单个页面的浏览记录数。
func (s *StatsService) PageViews(site, page string) (int64, error) {
	var count int64
	if err := s.db.Model(&db.PageView{}).
		Where("site_id = ? AND page_path = ?", site, page).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count page views for page: %w", err)
	}
	return count, nil
}
