// internal/app/system/rosterimport/columns.go
package rosterimport

// Column titles used by the association roster spreadsheet.
const (
	ColUniqueID            = "Unique ID"
	ColAssocCode           = "Assoc Code"
	ColAssociation         = "Association"
	ColAssociationLiveDate = "Association Live Date"
	ColAssociationManager  = "Association Manager"
	ColBoardMember         = "Board Member"
	ColMemberRole          = "Member Role"
	ColMemberType          = "Member type"
	ColTermStart           = "Term Start"
	ColTermEnd             = "Term End"
	ColFirstName           = "First Name"
	ColLastName            = "Last Name"
	ColHomeAddress         = "Home Address"
	ColHomeCity            = "Home City"
	ColHomeState           = "Home State"
	ColHomeZip             = "Home Zip"
	ColMailingAddress      = "Mailing Address"
	ColMailingCity         = "Mailing City"
	ColMailingState        = "Mailing State"
	ColMailingZip          = "Mailing Zip"
	ColPrimaryEmail        = "Primary Email"
	ColPrimaryPhone        = "Primary Phone"
)

// Columns lists the import columns in sheet order. Unique ID is optional.
var Columns = []string{
	ColAssocCode, ColAssociation, ColAssociationLiveDate, ColAssociationManager,
	ColBoardMember, ColMemberRole, ColMemberType, ColTermStart, ColTermEnd,
	ColFirstName, ColLastName, ColHomeAddress, ColHomeCity, ColHomeState,
	ColHomeZip, ColMailingAddress, ColMailingCity, ColMailingState, ColMailingZip,
	ColPrimaryEmail, ColPrimaryPhone,
}
