// Package syslogsvc implements the management operations of the system log
// on top of internal/eventlog. Transports (HTTP, CLI) call into it.
//
// Example:
//
//	svc := syslogsvc.New(rt)
//	_, _ = svc.Append(ctx, "boot complete")
//	all, _ := svc.ReadAll(ctx, "")
//	fresh, _ := svc.ReadNew(ctx, "shell", `text.contains("error")`)
//	_ = svc.Reset(ctx)
package syslogsvc
