package checkout

import (
	"net/url"
	"strconv"

	"storefront-service/config"
)

// BuildRedirectURL assembles the classic hosted-checkout URL. The return
// URL is later hit by the provider with a PayerID query parameter, which
// the reconciliation entry point consumes.
func BuildRedirectURL(cfg config.PayPalConfig, total float64, itemName string) string {
	v := url.Values{}
	v.Set("cmd", "_xclick")
	v.Set("business", cfg.Business)
	v.Set("amount", strconv.FormatFloat(total, 'f', 2, 64))
	v.Set("currency_code", cfg.Currency)
	v.Set("item_name", itemName)
	v.Set("return", cfg.ReturnURL)
	v.Set("cancel_return", cfg.CancelURL)
	return cfg.BaseURL + "?" + v.Encode()
}

// AppendSession tags a callback URL with the session id so the
// reconciliation entry point can find the right persisted data when the
// provider redirects back without our headers.
func AppendSession(rawURL, sessionID string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String()
}
