// Package schedule drives periodic work from cron expressions, such as the
// guild member list refresh.
package schedule
