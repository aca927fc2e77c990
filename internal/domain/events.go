package domain

import "time"

// Lifecycle topics. Each successful state change is published on one of them.
const (
	TopicBatchCreated         = "praxis.batch.created"
	TopicInternshipCreated    = "praxis.internship.created"
	TopicInternshipTransition = "praxis.internship.transition"
	TopicInternshipAssigned   = "praxis.internship.assigned"
	TopicContractCreated      = "praxis.contract.created"
	TopicContractSigned       = "praxis.contract.signed"
	TopicContractTransition   = "praxis.contract.transition"
	TopicEvaluationCreated    = "praxis.evaluation.created"
	TopicEvaluationScored     = "praxis.evaluation.scored"
	TopicEvaluationSubmitted  = "praxis.evaluation.submitted"
	TopicEvaluationTransition = "praxis.evaluation.transition"
	TopicPlacementAssessed    = "praxis.placement.assessed"
)

// LifecycleEvent is the payload published for every state change.
type LifecycleEvent struct {
	Entity       string            `json:"entity"`
	EntityID     string            `json:"entityId"`
	Action       string            `json:"action"`
	From         string            `json:"from,omitempty"`
	To           string            `json:"to,omitempty"`
	BatchID      string            `json:"batchId,omitempty"`
	InternshipID string            `json:"internshipId,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	At           time.Time         `json:"at"`
}
