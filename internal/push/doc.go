// Package push sends mobile notifications through the Expo push API.
//
//	sender := push.NewSender(push.Config{URL: push.DefaultURL, Timeout: 10 * time.Second})
//	err := sender.Send(ctx, push.Message{To: token, Title: "Hola", Body: "..."})
package push
