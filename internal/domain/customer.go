package domain

// Customer is the CRM's customer record. The notification core reads it to
// personalize messages and resolve recipient addresses; it never writes it.
type Customer struct {
	ID             int64  `json:"id"`
	Name           string `json:"customerName"`
	Phone          string `json:"phone,omitempty"`
	AlternatePhone string `json:"alternatePhone,omitempty"`
	Email          string `json:"email,omitempty"`
	VehicleMake    string `json:"vehicleMake"`
	VehicleModel   string `json:"vehicleModel"`
	VehicleYear    int    `json:"vehicleYear,omitempty"`
	VehicleNumber  string `json:"vehicleNumber,omitempty"`
	TotalMileage   int    `json:"totalMileage"`
}

// BestPhone returns the primary phone, falling back to the alternate.
// Empty string means the customer is unreachable by SMS/WhatsApp.
func (c *Customer) BestPhone() string {
	if c.Phone != "" {
		return c.Phone
	}
	return c.AlternatePhone
}

// Vehicle returns the vehicle attributes used for message personalization.
func (c *Customer) Vehicle() VehicleInfo {
	return VehicleInfo{
		Make:    c.VehicleMake,
		Model:   c.VehicleModel,
		Year:    c.VehicleYear,
		Mileage: c.TotalMileage,
	}
}

// VehicleInfo is the subset of vehicle data the message composer needs.
type VehicleInfo struct {
	Make    string `json:"vehicleMake"`
	Model   string `json:"vehicleModel"`
	Year    int    `json:"vehicleYear,omitempty"`
	Mileage int    `json:"totalMileage,omitempty"`
}

// Sender is the operator (telecaller) who triggered a dispatch.
type Sender struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}
