// Package redis wraps go-redis for the optional features of the billing
// service.
//
// Connect retries the initial ping, Healthcheck plugs the client into the
// readiness probe, and Marker keeps short-lived "already handled" flags such
// as processed webhook event ids:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	marker := redis.NewMarker(client, "billing:webhook:", 72*time.Hour)
//	if seen, _ := marker.Seen(ctx, eventID); seen {
//		return nil
//	}
//
// Errors wrap the sentinels in errors.go with errors.Join.
package redis
