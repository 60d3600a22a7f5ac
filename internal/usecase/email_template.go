package usecase

import (
	"strings"

	"checkout-payments/internal/domain/model"
)

// Defaults applied when the seller never customized the delivery email.
const (
	defaultEmailSubject = "Compra aprovada: {product_name}"
	defaultEmailBody    = "Olá {customer_name},\n\n" +
		"Sua compra de {product_name} foi aprovada!\n\n" +
		"Acesse seu produto aqui: {access_link}\n\n" +
		"Qualquer dúvida, fale com a gente: {support_email}\n\n" +
		"Obrigado pela sua compra!"
	defaultSupportEmail = "suporte@example.com"
	defaultCustomerName = "Cliente"
	defaultProductName  = "seu produto"
)

// EmailConfig is the fully resolved delivery-email configuration for
// one approved payment: seller toggles and templates merged with
// per-payment metadata overrides.
type EmailConfig struct {
	Enabled      bool
	SellerUserID string
	Subject      string // template, may contain placeholder tokens
	Body         string

	CustomerName string
	ProductName  string
	AccessLink   string
	SupportEmail string
}

type EmailVars struct {
	CustomerName string
	ProductName  string
	AccessLink   string
	SupportEmail string
}

type RenderedEmail struct {
	Subject string
	HTML    string
}

// resolveEmailConfig merges the checkout's email settings with the
// payment metadata overrides the dashboard stores per sale.
func resolveEmailConfig(st *provisionState) EmailConfig {
	var meta map[string]interface{}
	if st.payment != nil {
		meta = st.payment.Meta
	}

	cfg := EmailConfig{
		Subject:      defaultEmailSubject,
		Body:         defaultEmailBody,
		SupportEmail: defaultSupportEmail,
		CustomerName: defaultCustomerName,
		ProductName:  defaultProductName,
	}

	if st.checkout != nil {
		cfg.Enabled = st.checkout.EmailEnabled
		cfg.SellerUserID = st.checkout.SellerUserID
		if st.checkout.EmailSubject != "" {
			cfg.Subject = st.checkout.EmailSubject
		}
		if st.checkout.EmailBody != "" {
			cfg.Body = st.checkout.EmailBody
		}
		if st.checkout.SupportEmail != "" {
			cfg.SupportEmail = st.checkout.SupportEmail
		}
	}

	// Per-payment metadata wins over checkout configuration.
	if metaBool(meta, "transactional_email") {
		cfg.Enabled = true
	}
	if v := metaString(meta, "seller_user_id"); v != "" {
		cfg.SellerUserID = v
	}
	if v := metaString(meta, "email_subject"); v != "" {
		cfg.Subject = v
	}
	if v := metaString(meta, "email_body"); v != "" {
		cfg.Body = v
	}
	if v := metaString(meta, "support_email"); v != "" {
		cfg.SupportEmail = v
	}
	if v := metaString(meta, "product_name"); v != "" {
		cfg.ProductName = v
	} else if st.product != nil && st.product.Name != "" {
		cfg.ProductName = st.product.Name
	}
	if name := model.FirstName(st.buyerName); name != "" {
		cfg.CustomerName = name
	}
	if v := metaString(meta, "deliverable_link"); v != "" {
		cfg.AccessLink = v
	} else {
		cfg.AccessLink = model.AccessLink(st.checkout, st.product)
	}
	return cfg
}

// RenderDeliveryEmail substitutes every occurrence of every placeholder
// token and converts the body to HTML line breaks.
func RenderDeliveryEmail(cfg EmailConfig, vars EmailVars) RenderedEmail {
	r := strings.NewReplacer(
		"{customer_name}", vars.CustomerName,
		"{product_name}", vars.ProductName,
		"{access_link}", vars.AccessLink,
		"{support_email}", vars.SupportEmail,
	)
	return RenderedEmail{
		Subject: r.Replace(cfg.Subject),
		HTML:    NewlineToBr(r.Replace(cfg.Body)),
	}
}

// NewlineToBr converts plain-text newlines into <br> tags for HTML
// rendering, normalizing Windows line endings first.
func NewlineToBr(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}
