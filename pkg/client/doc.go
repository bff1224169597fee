// Package client is the Go SDK for the Nabahah risk scoring API.
//
// Quick start:
//
//	c, err := client.New("http://localhost:5000")
//	if err != nil { ... }
//	res, err := c.CalculateRisk(ctx, client.CalculateRequest{
//		RecentFailedAttempts: client.Int(2),
//		TimeAnomaly:          client.Int(1),
//	})
//	fmt.Println(res.RiskScore, res.Action)
//
// Fields left nil in CalculateRequest are omitted from the request, so the
// server applies its defaults (known device, matching location, no anomaly,
// low sensitivity, no failed attempts).
package client
