// models/pageview.go
package models

import "time"

// PageViewEvent is one recorded visit to one path.
// VisitorKey is only used for unique-visitor counting and is never returned
// in reports.
type PageViewEvent struct {
	ID               string    `json:"id"`
	Page             string    `json:"page"`
	VisitorKey       string    `json:"-"`
	UserAgent        string    `json:"userAgent"`
	Referrer         string    `json:"referrer"`
	ScreenResolution string    `json:"screenResolution,omitempty"`
	Timezone         string    `json:"timezone,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// PageViewInput carries the sanitized fields of a tracking request.
type PageViewInput struct {
	Page             string
	Referrer         string
	UserAgent        string
	ScreenResolution string
	Timezone         string
	VisitorKey       string
}

// TrackRequest is the JSON body accepted by the tracking endpoint.
type TrackRequest struct {
	Page             string `json:"page" binding:"required"`
	Referrer         string `json:"referrer"`
	UserAgent        string `json:"userAgent"`
	ScreenResolution string `json:"screenResolution"`
	Timezone         string `json:"timezone"`
}
