// Package notify delivers user-facing notifications about second-factor
// state changes: enabled when the first credential is added, disabled when
// credentials are removed.
//
// The Manager is a fire-and-forget boundary. Delivery failures are logged
// and swallowed so that a broken email gateway or webhook can never fail the
// credential transaction that triggered the notification. The disabled
// notification carries whether the action was self-initiated, allowing
// differentiated messaging ("you disabled 2FA" vs "an administrator disabled
// your 2FA").
//
//	manager := notify.NewManager(deliverer)
//	manager.NotifyEnabled(ctx, "alice")
//	manager.NotifyDisabled(ctx, "bob", false)
package notify
