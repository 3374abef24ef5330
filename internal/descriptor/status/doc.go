// Package status defines the close-status codes exchanged between the two
// holders of a reliable descriptor, and the fixed-size frame they travel in.
//
// Wire format:
//
//	+----------------+---------------------------+
//	| code (int32 BE)| message bytes (optional)  |
//	+----------------+---------------------------+
//	|<------------ at most MaxFrameSize -------->|
//
// Codes:
//   - OK (0): clean close
//   - Error (1): application error, message carried verbatim
//   - Detached (2): ownership handed to unmanaged code
//   - Leaked (3): descriptor was abandoned without being closed
//   - Dead (-2): inferred locally, never sent
//   - Silence (-1): "send nothing", never sent
package status
