// Package account stores the users that own devices.
//
// A user carries at most one Expo push token. The notification path looks
// the owner up by ID and sends to that token when one is registered.
package account
