package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrProjectBilling marks a project whose billing fields contradict its billing type.
var ErrProjectBilling = errors.New("inconsistent project billing")

type BillingType string

const (
	BillingPackage BillingType = "package"
	BillingCustom  BillingType = "custom"
)

type PackageTier string

const (
	TierSingle PackageTier = "Single"
	Tier10h    PackageTier = "10h"
	Tier20h    PackageTier = "20h"
	Tier40h    PackageTier = "40h"
)

type Project struct {
	ID          string       `json:"id" yaml:"id"`
	ClientID    string       `json:"client_id" yaml:"client_id"`
	Name        string       `json:"name" yaml:"name"`
	BillingType BillingType  `json:"billing_type" yaml:"billing_type"`
	PackageTier *PackageTier `json:"package_tier,omitempty" yaml:"package_tier"`
	CustomRate  *float64     `json:"custom_rate,omitempty" yaml:"custom_rate"`
	TargetHours *float64     `json:"target_hours,omitempty" yaml:"target_hours"`
	CreatedAt   time.Time    `json:"created_at" yaml:"-"`
}

// ValidateBilling checks that exactly the field matching BillingType is populated.
// Tier values are not checked against the price table here; billing does that.
func (p Project) ValidateBilling() error {
	switch p.BillingType {
	case BillingPackage:
		if p.PackageTier == nil || *p.PackageTier == "" {
			return fmt.Errorf("%w: project %q is package billed without a tier", ErrProjectBilling, p.ID)
		}
		if p.CustomRate != nil {
			return fmt.Errorf("%w: project %q is package billed but has a custom rate", ErrProjectBilling, p.ID)
		}
	case BillingCustom:
		if p.CustomRate == nil {
			return fmt.Errorf("%w: project %q is custom billed without a rate", ErrProjectBilling, p.ID)
		}
		if *p.CustomRate <= 0 {
			return fmt.Errorf("%w: project %q has non-positive custom rate %.2f", ErrProjectBilling, p.ID, *p.CustomRate)
		}
		if p.PackageTier != nil {
			return fmt.Errorf("%w: project %q is custom billed but has a package tier", ErrProjectBilling, p.ID)
		}
	default:
		return fmt.Errorf("%w: project %q has unknown billing type %q", ErrProjectBilling, p.ID, p.BillingType)
	}
	return nil
}

// ProgressState describes how far a project is towards its target hours.
type ProgressState string

const (
	ProgressNoTarget   ProgressState = "no_target"
	ProgressNotStarted ProgressState = "not_started"
	ProgressInProgress ProgressState = "in_progress"
	ProgressCompleted  ProgressState = "completed"
)

type ProjectStatus struct {
	ProjectID   string        `json:"project_id"`
	BookedHours float64       `json:"booked_hours"`
	TargetHours float64       `json:"target_hours,omitempty"`
	Percent     float64       `json:"percent"`
	State       ProgressState `json:"state"`
}

type CostMetrics struct {
	TotalHours   float64 `json:"total_hours"`
	PricePerHour float64 `json:"price_per_hour"`
	TotalAmount  float64 `json:"total_amount"`
}

// MonthlyRecipe maps client display names to their metrics for one calendar month.
type MonthlyRecipe map[string]CostMetrics

func TierPtr(t PackageTier) *PackageTier { return &t }

func Float64Ptr(v float64) *float64 { return &v }
