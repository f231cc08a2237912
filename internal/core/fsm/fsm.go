// Package fsm holds the allowed-transition tables for every status-bearing entity.
// Create and update paths consult the same table.
package fsm

import (
	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
)

type Machine struct {
	entity      string
	initial     map[string]bool
	transitions map[string]map[string]bool
}

func New(entity string, initial []string, transitions map[string][]string) *Machine {
	m := &Machine{
		entity:      entity,
		initial:     make(map[string]bool, len(initial)),
		transitions: make(map[string]map[string]bool, len(transitions)),
	}
	for _, s := range initial {
		m.initial[s] = true
	}
	for from, targets := range transitions {
		set := make(map[string]bool, len(targets))
		for _, to := range targets {
			set[to] = true
		}
		m.transitions[from] = set
	}
	return m
}

func (m *Machine) Entity() string {
	return m.entity
}

func (m *Machine) CanStart(status string) bool {
	return m.initial[status]
}

func (m *Machine) Can(from, to string) bool {
	return m.transitions[from][to]
}

func (m *Machine) IsTerminal(status string) bool {
	return len(m.transitions[status]) == 0
}

// Known reports whether status appears anywhere in the table.
func (m *Machine) Known(status string) bool {
	if m.initial[status] {
		return true
	}
	if _, ok := m.transitions[status]; ok {
		return true
	}
	for _, targets := range m.transitions {
		if targets[status] {
			return true
		}
	}
	return false
}

func (m *Machine) ValidateInitial(status string) error {
	if !m.CanStart(status) {
		return errors.NewInvalidTransitionError(m.entity, "(new)", status)
	}
	return nil
}

func (m *Machine) Validate(from, to string) error {
	if !m.Can(from, to) {
		return errors.NewInvalidTransitionError(m.entity, from, to)
	}
	return nil
}

var TripRequest = New("trip request",
	[]string{trip.StatusPending, trip.StatusApproved},
	map[string][]string{
		trip.StatusPending:    {trip.StatusApproved, trip.StatusRejected, trip.StatusCancelled},
		trip.StatusApproved:   {trip.StatusAssigned, trip.StatusCancelled},
		trip.StatusAssigned:   {trip.StatusInProgress, trip.StatusCancelled},
		trip.StatusInProgress: {trip.StatusCompleted},
		trip.StatusRejected:   {},
		trip.StatusCancelled:  {},
		trip.StatusCompleted:  {},
	})

var Assignment = New("assignment",
	[]string{assignment.StatusAssigned},
	map[string][]string{
		assignment.StatusAssigned:  {assignment.StatusAccepted, assignment.StatusRejected, assignment.StatusCancelled},
		assignment.StatusAccepted:  {assignment.StatusStarted, assignment.StatusCancelled},
		assignment.StatusStarted:   {assignment.StatusCompleted, assignment.StatusCancelled},
		assignment.StatusRejected:  {},
		assignment.StatusCompleted: {},
		assignment.StatusCancelled: {},
	})

var TripCostPayment = New("trip cost",
	[]string{tripcost.PaymentStatusDraft},
	map[string][]string{
		tripcost.PaymentStatusDraft:   {tripcost.PaymentStatusPending, tripcost.PaymentStatusPaid},
		tripcost.PaymentStatusPending: {tripcost.PaymentStatusPaid, tripcost.PaymentStatusOverdue},
		tripcost.PaymentStatusOverdue: {tripcost.PaymentStatusPaid},
		tripcost.PaymentStatusPaid:    {},
	})

var Invoice = New("invoice",
	[]string{invoice.StatusPending, invoice.StatusNoCharges, invoice.StatusDraft},
	map[string][]string{
		invoice.StatusDraft:     {invoice.StatusPending, invoice.StatusNoCharges},
		invoice.StatusPending:   {invoice.StatusPaid, invoice.StatusOverdue},
		invoice.StatusOverdue:   {invoice.StatusPaid},
		invoice.StatusPaid:      {},
		invoice.StatusNoCharges: {},
	})
