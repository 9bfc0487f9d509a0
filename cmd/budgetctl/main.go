// Command budgetctl operates the budget engine from the shell: one-time
// setup, period lookups, month-end closes, holiday refreshes and seeding.
//
// It reads the same environment (and .env file) as the server.
package main

func main() {
	Execute()
}
