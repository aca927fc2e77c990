package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// DefaultNearExpirationDays is the window IsNearExpiration uses when no threshold is given.
const DefaultNearExpirationDays = 30

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractDraft:   {ContractPending, ContractCancelled},
	ContractPending: {ContractSigned, ContractCancelled},
	ContractSigned:  {ContractActive},
	ContractActive:  {ContractExpired, ContractTerminated},
}

// Signature is one party's independent sign-off on a contract.
type Signature struct {
	Status     SignatureStatus `json:"status"`
	SignerID   string          `json:"signerId,omitempty"`
	SignerName string          `json:"signerName,omitempty"`
	SignedAt   *time.Time      `json:"signedAt,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// IsSigned reports whether the party has signed.
func (s Signature) IsSigned() bool {
	return s.Status == SignatureSigned
}

// Contract is the three-party agreement attached to an internship.
type Contract struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenantId"`
	ContractNumber string         `json:"contractNumber"`
	Title          string         `json:"title"`
	Type           ContractType   `json:"type"`
	Status         ContractStatus `json:"status"`
	Terms          string         `json:"terms,omitempty"`

	Internship Ref[InternshipSummary] `json:"internship"`
	Student    Ref[Student]           `json:"student"`
	Company    Ref[Company]           `json:"company"`

	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`

	Salary       float64   `json:"salary"`
	PayPeriod    PayPeriod `json:"payPeriod"`
	HoursPerWeek int       `json:"hoursPerWeek"`

	StudentSignature Signature `json:"studentSignature"`
	CompanySignature Signature `json:"companySignature"`
	SchoolSignature  Signature `json:"schoolSignature"`

	Compliant   bool       `json:"compliant"`
	CompliantAt *time.Time `json:"compliantAt,omitempty"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`

	TerminationReason string     `json:"terminationReason,omitempty"`
	TerminationDate   *time.Time `json:"terminationDate,omitempty"`
	NoticeDays        int        `json:"noticeDays,omitempty"`
	CancelReason      string     `json:"cancelReason,omitempty"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContractParams holds the fields supplied when drafting a contract.
type ContractParams struct {
	ID             string
	TenantID       string
	ContractNumber string
	Title          string
	Type           string
	Terms          string
	Internship     Ref[InternshipSummary]
	Student        Ref[Student]
	Company        Ref[Company]
	StartDate      *time.Time
	EndDate        *time.Time
	ExpirationDate *time.Time
	Salary         float64
	PayPeriod      string
	HoursPerWeek   int
}

// NewContract drafts a contract with every signature pending. The expiration
// date defaults to the end date.
func NewContract(p ContractParams, now time.Time) *Contract {
	c := &Contract{
		ID:             p.ID,
		TenantID:       p.TenantID,
		ContractNumber: strings.TrimSpace(p.ContractNumber),
		Title:          strings.TrimSpace(p.Title),
		Type:           ContractType(p.Type),
		Status:         ContractDraft,
		Terms:          p.Terms,
		Internship:     p.Internship,
		Student:        p.Student,
		Company:        p.Company,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		ExpirationDate: p.ExpirationDate,
		Salary:         p.Salary,
		PayPeriod:      PayPeriod(p.PayPeriod),
		HoursPerWeek:   p.HoursPerWeek,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	c.applyDefaults()
	return c
}

// UnmarshalJSON decodes a stored record and applies the NewContract defaults.
func (c *Contract) UnmarshalJSON(data []byte) error {
	type raw Contract
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*c = Contract(r)
	c.applyDefaults()
	return nil
}

func (c *Contract) applyDefaults() {
	if t, ok := ParseContractType(string(c.Type)); ok {
		c.Type = t
	} else {
		c.Type = ContractInternship
	}
	if s, ok := ParseContractStatus(string(c.Status)); ok {
		c.Status = s
	} else {
		c.Status = ContractDraft
	}
	if p, ok := ParsePayPeriod(string(c.PayPeriod)); ok {
		c.PayPeriod = p
	} else {
		c.PayPeriod = PayMonthly
	}
	for _, party := range SignatureParties {
		sig := c.signature(party)
		if !sig.Status.IsValid() {
			sig.Status = SignaturePending
		}
	}
	if c.ExpirationDate == nil && c.EndDate != nil {
		exp := *c.EndDate
		c.ExpirationDate = &exp
	}
}

func (c *Contract) signature(party SignatureParty) *Signature {
	switch party {
	case PartyStudent:
		return &c.StudentSignature
	case PartyCompany:
		return &c.CompanySignature
	case PartySchool:
		return &c.SchoolSignature
	}
	return nil
}

// Signature returns a copy of the party's signature record.
func (c *Contract) Signature(party SignatureParty) (Signature, bool) {
	if sig := c.signature(party); sig != nil {
		return *sig, true
	}
	return Signature{}, false
}

// ─── predicates ─────────────────────────────────────────────────────────────

// CanTransitionTo reports whether the coarse state machine allows target.
func (c *Contract) CanTransitionTo(target ContractStatus) bool {
	for _, next := range contractTransitions[c.Status] {
		if next == target {
			return true
		}
	}
	return false
}

// CanSign reports whether signatures are still being collected.
func (c *Contract) CanSign() bool {
	return c.Status == ContractDraft || c.Status == ContractPending
}

// SignedCount is the number of parties that have signed.
func (c *Contract) SignedCount() int {
	n := 0
	for _, party := range SignatureParties {
		if c.signature(party).IsSigned() {
			n++
		}
	}
	return n
}

// IsFullySigned reports whether all three parties signed.
func (c *Contract) IsFullySigned() bool {
	return c.SignedCount() == len(SignatureParties)
}

// SignatureProgress is round(signed/3*100).
func (c *Contract) SignatureProgress() int {
	return percent(float64(c.SignedCount()), float64(len(SignatureParties)))
}

// CanActivate requires SIGNED status, all signatures and the compliance flag.
func (c *Contract) CanActivate() bool {
	return c.Status == ContractSigned && c.IsFullySigned() && c.Compliant
}

// HasExpired reports whether now is past the expiration date. A contract
// already marked EXPIRED has expired regardless of dates.
func (c *Contract) HasExpired(now time.Time) bool {
	if c.Status == ContractExpired {
		return true
	}
	return c.ExpirationDate != nil && now.After(*c.ExpirationDate)
}

// DaysRemaining counts whole days until expiration, 0 once passed or unknown.
func (c *Contract) DaysRemaining(now time.Time) int {
	if c.ExpirationDate == nil {
		return 0
	}
	return ceilDays(c.ExpirationDate.Sub(now))
}

// IsNearExpiration reports 0 < daysRemaining <= threshold. A non-positive
// threshold means DefaultNearExpirationDays.
func (c *Contract) IsNearExpiration(now time.Time, thresholdDays int) bool {
	if thresholdDays <= 0 {
		thresholdDays = DefaultNearExpirationDays
	}
	d := c.DaysRemaining(now)
	return d > 0 && d <= thresholdDays
}

// CanTerminate reports whether the contract is active and not expired by date.
func (c *Contract) CanTerminate(now time.Time) bool {
	return c.Status == ContractActive && !c.HasExpired(now)
}

// CanCancel reports whether the contract is still in negotiation.
func (c *Contract) CanCancel() bool {
	return c.CanTransitionTo(ContractCancelled)
}

// IsClosed reports whether the contract reached a terminal status.
func (c *Contract) IsClosed() bool {
	switch c.Status {
	case ContractExpired, ContractTerminated, ContractCancelled:
		return true
	}
	return false
}

// ─── derived values ─────────────────────────────────────────────────────────

// DurationDays is the contract window length in whole days.
func (c *Contract) DurationDays() int {
	if c.StartDate == nil || c.EndDate == nil {
		return 0
	}
	return ceilDays(c.EndDate.Sub(*c.StartDate))
}

// TotalContractValue projects the salary over the contract window according
// to the pay period.
func (c *Contract) TotalContractValue() float64 {
	days := c.DurationDays()
	var v float64
	switch c.PayPeriod {
	case PayLumpSum:
		v = c.Salary
	case PayHourly:
		v = c.Salary * float64(c.HoursPerWeek) * float64(ceilDiv(days, 7))
	case PayWeekly:
		v = c.Salary * float64(ceilDiv(days, 7))
	default:
		v = c.Salary * float64(ceilDiv(days, 30))
	}
	return math.Round(v*100) / 100
}

// ─── mutations ──────────────────────────────────────────────────────────────

func (c *Contract) reject(to ContractStatus, reason string) error {
	return transitionError("contract", c.ID, c.Status, to, reason)
}

func (c *Contract) moveTo(to ContractStatus, now time.Time) {
	c.Status = to
	c.UpdatedAt = now.UTC()
}

// SubmitForSignature moves a draft to PENDING without signing.
func (c *Contract) SubmitForSignature(now time.Time) error {
	if c.Status != ContractDraft {
		return c.reject(ContractPending, "")
	}
	c.moveTo(ContractPending, now)
	return nil
}

// Sign records the party's signature. The first signature moves a draft to
// PENDING, the last one to SIGNED. A party that rejected may sign later.
func (c *Contract) Sign(party SignatureParty, signer Evaluator, now time.Time) error {
	sig := c.signature(party)
	if sig == nil {
		return ErrInvalidInput
	}
	if !c.CanSign() {
		return c.reject(ContractSigned, "contract is no longer collecting signatures")
	}
	if sig.IsSigned() {
		return c.reject(ContractSigned, strings.ToLower(string(party))+" already signed")
	}

	*sig = Signature{
		Status:     SignatureSigned,
		SignerID:   signer.ID,
		SignerName: signer.Name,
		SignedAt:   timePtr(now.UTC()),
	}
	if c.Status == ContractDraft {
		c.Status = ContractPending
	}
	if c.IsFullySigned() {
		c.Status = ContractSigned
	}
	c.UpdatedAt = now.UTC()
	return nil
}

// RejectSignature records that a party refused to sign. The contract stays
// in negotiation.
func (c *Contract) RejectSignature(party SignatureParty, signer Evaluator, reason string, now time.Time) error {
	sig := c.signature(party)
	if sig == nil {
		return ErrInvalidInput
	}
	if !c.CanSign() {
		return c.reject(c.Status, "contract is no longer collecting signatures")
	}
	if sig.IsSigned() {
		return c.reject(c.Status, strings.ToLower(string(party))+" already signed")
	}
	*sig = Signature{
		Status:     SignatureRejected,
		SignerID:   signer.ID,
		SignerName: signer.Name,
		SignedAt:   timePtr(now.UTC()),
		Reason:     reason,
	}
	if c.Status == ContractDraft {
		c.Status = ContractPending
	}
	c.UpdatedAt = now.UTC()
	return nil
}

// MarkCompliant sets the compliance flag activation depends on.
func (c *Contract) MarkCompliant(now time.Time) error {
	if c.IsClosed() {
		return c.reject(c.Status, "contract is closed")
	}
	c.Compliant = true
	c.CompliantAt = timePtr(now.UTC())
	c.UpdatedAt = now.UTC()
	return nil
}

// Activate moves a signed and compliant contract to ACTIVE.
func (c *Contract) Activate(now time.Time) error {
	if !c.CanActivate() {
		reason := ""
		switch {
		case c.Status != ContractSigned:
		case !c.IsFullySigned():
			reason = "all parties must sign"
		case !c.Compliant:
			reason = "compliance check is outstanding"
		}
		return c.reject(ContractActive, reason)
	}
	c.ActivatedAt = timePtr(now.UTC())
	c.moveTo(ContractActive, now)
	return nil
}

// Terminate ends an active contract early.
func (c *Contract) Terminate(reason string, effective time.Time, noticeDays int, now time.Time) error {
	if !c.CanTerminate(now) {
		return c.reject(ContractTerminated, "")
	}
	if noticeDays < 0 {
		return ErrValueOutOfRange
	}
	c.TerminationReason = reason
	c.TerminationDate = timePtr(effective.UTC())
	c.NoticeDays = noticeDays
	c.ClosedAt = timePtr(now.UTC())
	c.moveTo(ContractTerminated, now)
	return nil
}

// Expire marks an active contract EXPIRED once its expiration date passed.
func (c *Contract) Expire(now time.Time) error {
	if c.Status != ContractActive {
		return c.reject(ContractExpired, "")
	}
	if c.ExpirationDate == nil || !now.After(*c.ExpirationDate) {
		return c.reject(ContractExpired, "expiration date not reached")
	}
	c.ClosedAt = timePtr(now.UTC())
	c.moveTo(ContractExpired, now)
	return nil
}

// Cancel abandons a contract that has not been fully executed.
func (c *Contract) Cancel(reason string, now time.Time) error {
	if !c.CanCancel() {
		return c.reject(ContractCancelled, "")
	}
	c.CancelReason = reason
	c.ClosedAt = timePtr(now.UTC())
	c.moveTo(ContractCancelled, now)
	return nil
}

// Validate lists every problem with the contract form.
func (c *Contract) Validate() []string {
	problems := []string{}
	if strings.TrimSpace(c.Title) == "" {
		problems = append(problems, "title is required")
	}
	if !c.Internship.IsSet() {
		problems = append(problems, "internship is required")
	}
	if c.StartDate == nil || c.EndDate == nil {
		problems = append(problems, "start and end dates are required")
	} else if !c.EndDate.After(*c.StartDate) {
		problems = append(problems, "end date must be after start date")
	}
	if c.Salary < 0 {
		problems = append(problems, "salary cannot be negative")
	}
	if c.PayPeriod == PayHourly && c.HoursPerWeek <= 0 {
		problems = append(problems, "hourly contracts need hours per week")
	}
	return problems
}
