// Package sanitizer normalizes booking input before it is validated and stored.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input is never an error here; it is returned
// in a shape the validator will reject (usually an empty string).
//
// Normalization includes:
//   - Phone numbers: E.164 (+[country][number]), national numbers read as Kenyan first
//   - Names and free text: collapse whitespace, trim
//   - Emails: trim, lower-case
//   - Booking references: strip spaces, upper-case
//   - Prices: clamp at zero, round to cents
package sanitizer
