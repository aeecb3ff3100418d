// Package pd decodes USB Power Delivery records: Power Data Objects,
// structured VDM headers, the VDOs of a Discover Identity response, and
// the Revision message.
//
// Decoding is table driven. Each row of a table names a variant, the
// roles and PD revisions it applies to, and the bits that must be zero;
// a row is selected by semantic-version constraint on the declared
// [Revision]. A nonzero reserved bit, an unknown variant tag, a truncated
// buffer or an unsupported revision yields a [pkg.DecodeError].
//
// Every decoded record has an Encode method returning its wire form, and
// decoding an encoded record yields the same record.
package pd
