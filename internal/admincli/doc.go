// Package admincli implements gims-admin, the operator command line for
// account maintenance.
//
// Commands run once and exit:
//   - create-user: add a verified account, password read from the terminal
//   - reset-password: set a new password and clear any lockout
//   - verify: mark an email verified without the emailed link
//   - unlock: clear failed attempts and the lock
//   - set-role: promote or demote an account
//   - list-users: print every account with its state
//   - verification-link: print the pending verification link
//
// Server configuration flags (-d, -c, ...) may precede the command.
package admincli
