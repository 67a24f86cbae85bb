package handler

import "github.com/statlite/internal/service"

type statsProvider interface {
	Track(event service.TrackEvent) (service.Summary, error)
	Summary(site, page string) (service.Summary, error)
}

type admissionChecker interface {
	Check(ip string) service.Decision
}
