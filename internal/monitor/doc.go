// Package monitor defines the core types and ports shared by the availability monitor.
//
// The poll pipeline is fetch → extract → compare → (notify + persist) → sleep. Each stage is an
// interface declared here so the poller can be exercised with fakes and the concrete adapters
// (chromedp, goquery, JSON file, SMTP, ...) stay in their own packages.
package monitor
