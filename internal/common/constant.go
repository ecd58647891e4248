package common

// RemarkTimeLayout is the timestamp layout used in human-readable upload
// remarks ("Deleted via user on 02/01/06 15:04").
const RemarkTimeLayout = "02/01/06 15:04"

// UploadIDDateLayout is the date part of generated upload IDs (FYYMMDDNNN).
const UploadIDDateLayout = "060102"
