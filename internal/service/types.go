package service

import (
	"io"
	"time"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/ledger"
	"github.com/timekeepco/timekeep/internal/reconcile"
)

// FileInput is one uploaded CSV export.
type FileInput struct {
	Name   string
	Reader io.Reader
}

// CompareInput is the payload accepted by ComparisonService.Compare.
type CompareInput struct {
	TAR FileInput
	ECB FileInput
	// Filter restricts the returned discrepancies; nil keeps all of them.
	Filter *reconcile.Filter
}

// CompareResult is what /compare returns to the viewer.
type CompareResult struct {
	RunID         string
	Discrepancies []domain.Discrepancy
	TotalRecords  int
	Summary       domain.Summary
	Warnings      []ledger.Warning
}

// SignupInput is the inbound signup payload.
type SignupInput struct {
	Username string `json:"username" validate:"required,max=80,username"`
	Email    string `json:"email" validate:"required,max=120,email"`
	Password string `json:"password" validate:"required,min=8,max=72,maxbytes=72"`
}

// LoginInput is the inbound login payload.
type LoginInput struct {
	Username string `json:"username" validate:"required,max=80"`
	Password string `json:"password" validate:"required,max=72"`
}

// Session is an issued login session.
type Session struct {
	Token    string
	Username string
	UserID   uint64
	Expires  time.Time
}
