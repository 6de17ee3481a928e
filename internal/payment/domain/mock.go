package domain

import "net/url"

// MockIntent is the deterministic, network-free result returned when a gateway has no credentials.
func MockIntent(provider, publicBaseURL string, req PaymentIntentRequest) PaymentIntentResult {
	q := url.Values{}
	q.Set("order_id", req.OrderID)
	return PaymentIntentResult{
		Success:          true,
		GatewayPaymentID: MockPrefix + "pi_" + req.OrderID,
		TransactionID:    MockPrefix + "txn_" + req.OrderID,
		RedirectURL:      publicBaseURL + "/payment/mock/" + provider + "/checkout?" + q.Encode(),
		Mock:             true,
	}
}
