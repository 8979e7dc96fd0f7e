package domain

// OpsSnapshot is an aggregate view over the engine's counters, served by
// the GET /v1/metrics/engine endpoint.
type OpsSnapshot struct {
	TotalLookups     int64   `json:"totalLookups"`
	SyntheticRate    float64 `json:"syntheticRate"`
	TotalPayments    int64   `json:"totalPayments"`
	ApprovalRate     float64 `json:"approvalRate"`
	BatchRowsTotal   int64   `json:"batchRowsTotal"`
	BatchSuccessRate float64 `json:"batchSuccessRate"`
	UpstreamErrors   int64   `json:"upstreamErrors"`
	Period           string  `json:"period"`
}
