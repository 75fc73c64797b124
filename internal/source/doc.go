// Package source acquires the published outage document.
//
// One acquisition is a bounded loop of attempts. Each attempt opens a fresh
// fetcher session, loads the page, extracts the JSON literal assigned to the
// marker and decodes it. The session is closed before the attempt returns.
package source
