// Package tilestore persists map tiles under a deterministic
// {z}/{x}/{y}.png layout.
//
// Two backends implement [Store]:
//   - [Disk] writes files below a local directory, staging each tile in a
//     temporary file that is fsynced and renamed into place. Staging files
//     orphaned by a crash are cleaned up when that tile is next written.
//   - [Bucket] writes objects to any gocloud.dev/blob bucket (file://,
//     mem://, s3://, gs://).
//
// The presence of a non-empty tile is the only state the store keeps: it is
// what makes a repeated run skip work that is already done. Neither backend
// ever reports a zero-byte tile as present.
package tilestore
