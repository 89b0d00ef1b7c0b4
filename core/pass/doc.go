// Package pass models the content of a wallet pass: typed field values,
// field groups, locations, barcodes and exactly one style payload.
//
// Pass values are built with Builder and are immutable once finished.
// Accessors return copies, so a Pass can be shared freely. The JSON codec
// follows the conventional pass.json schema.
package pass
