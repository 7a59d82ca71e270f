// Package runinput lets a suspended run wait for typed values delivered later
// by a human, another run, or an automated agent.
//
// # Overview
//
// Every run owns an inbox in a Store, scoped by run id. Inputs are addressed
// through keysets: a pair of keys separating a channel's registered schema from
// its delivered values.
//
//	keyset := runinput.KeysetFromBaseKey("approval")
//	// keyset.Response = "approval-response"
//	// keyset.Schema   = "approval-schema"
//
// # Input Types
//
// A RunInput binds a Go type to a closed schema under a declared name. Payloads
// are validated at every decode: undeclared fields are rejected.
//
//	type Approval struct {
//		Approved bool   `json:"approved"`
//		Reason   string `json:"reason,omitempty"`
//	}
//
//	var ApprovalInput = runinput.MustDefine[Approval]("Approval")
//
// # Pausing For Input
//
// A paused run derives a private channel from its pause key, saves the schema
// there and later loads the single response:
//
//	state := runinput.Paused()
//	keyset, _ := runinput.KeysetFromPausedState(state)
//	_ = ApprovalInput.Save(ctx, client, keyset, "")
//	// ... a responder calls runinput.Respond ...
//	approval, err := ApprovalInput.Load(ctx, client, keyset, "")
//
// # Sending Between Runs
//
// A run publishes the input types it accepts under the reserved "keyset" key.
// Senders look the channel up and write an Envelope under a freshly minted key:
//
//	_, _ = recipient.PublishKeyset(ctx, "", ApprovalInput)
//	key, err := runinput.Send(ctx, sender, ApprovalInput, Approval{Approved: true}, recipientRunID)
//
// The recipient consumes envelopes with a Poller:
//
//	poller := runinput.Receive(recipient, ApprovalInput, runinput.WithTimeout(time.Minute))
//	for env, err := range poller.All(ctx) {
//		...
//	}
//
// Polling is the only delivery mechanism. A Poller never yields the same record
// twice, but separate pollers on the same inbox may.
package runinput
