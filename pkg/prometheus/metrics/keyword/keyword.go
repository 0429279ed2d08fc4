package keyword

const (
	MutexParkedMetricName        = "castbox_mutex_parked_total"
	MutexWokenMetricName         = "castbox_mutex_woken_total"
	ContractViolationsMetricName = "castbox_contract_violations_total"
	PayloadsDestroyedMetricName  = "castbox_anyref_payload_destroyed_total"
	RefcountAbortsMetricName     = "castbox_anyref_refcount_aborts_total"
	SoakOpsMetricName            = "castbox_soak_ops_total"
	TotalHttpRequestsMetricName  = "castbox_http_requests_total"
	HttpResponseTimeMsMetricName = "castbox_http_response_time_ms"
	ExclusiveMode                = "exclusive"
	GroupMode                    = "group"
)
