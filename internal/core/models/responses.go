package models

// ErrorResponse is the body the management API returns on failures.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// OverviewDTO is the subset of api/overview used for liveness probing.
type OverviewDTO struct {
	ManagementVersion string `json:"management_version"`
	ProductName       string `json:"product_name"`
	ProductVersion    string `json:"product_version"`
	ClusterName       string `json:"cluster_name"`
}
