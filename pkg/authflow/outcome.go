package authflow

// Outcome is the result of one secondary-authentication step.
type Outcome int

const (
	// OutcomeAbstain means the account has no second factor; the step is not
	// applicable. Distinct from Pass and Fail: the pipeline should treat the
	// step as skippable, not as satisfied by a credential.
	OutcomeAbstain Outcome = iota

	// OutcomeAwait means a challenge was issued and the flow is suspended
	// until the user submits a response.
	OutcomeAwait

	// OutcomePass means the second factor was satisfied.
	OutcomePass

	// OutcomeFail means the response was rejected.
	OutcomeFail
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAbstain:
		return "abstain"
	case OutcomeAwait:
		return "await"
	case OutcomePass:
		return "pass"
	case OutcomeFail:
		return "fail"
	default:
		return "unknown"
	}
}
