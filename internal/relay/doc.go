// Package relay delivers queued iLert events over HTTPS.
//
// Each delivery attempt is classified into a Kind. Success and
// ClientRejected remove the event file; every other kind keeps it for the
// next flush. A flush is serialized across processes by the directory lock.
package relay
