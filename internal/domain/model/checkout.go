package model

// DeliverableType says how a buyer receives the product after purchase.
type DeliverableType string

const (
	DeliverableNone   DeliverableType = "none"
	DeliverableLink   DeliverableType = "link"
	DeliverableUpload DeliverableType = "upload"
)

// Checkout is the seller-owned sales page configuration. The
// reconciliation service only reads checkouts.
type Checkout struct {
	ID           string
	SellerUserID string
	ProductID    string
	MemberAreaID *string

	DeliverableType DeliverableType
	DeliverableLink string // explicit link the seller configured
	DeliverableURL  string // uploaded file url
	DeliverableName string
	DeliverableDesc string

	EmailEnabled bool
	EmailSubject string // template; empty means use the default
	EmailBody    string
	SupportEmail string
}

// Product is the digital good behind a checkout. Read-only here.
type Product struct {
	ID             string
	Name           string
	Description    string
	MemberAreaLink string
	FileURL        string
}

// AccessLink resolves the deliverable link a buyer should receive,
// in priority order: explicit deliverable link, member area link,
// product file url, empty.
func AccessLink(c *Checkout, p *Product) string {
	if c != nil && c.DeliverableLink != "" {
		return c.DeliverableLink
	}
	if c != nil && c.DeliverableURL != "" {
		return c.DeliverableURL
	}
	if p != nil {
		if p.MemberAreaLink != "" {
			return p.MemberAreaLink
		}
		if p.FileURL != "" {
			return p.FileURL
		}
	}
	return ""
}
