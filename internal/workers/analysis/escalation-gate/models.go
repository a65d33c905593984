// internal/workers/analysis/escalation-gate/models.go
package escalationgate

const ClaimLookupTag = "claim_lookup"
