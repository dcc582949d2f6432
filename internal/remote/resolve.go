package remote

import (
	"fmt"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
)

// ResolveFileType picks the file type for a proxied file. The returned MIME type
// wins; a generic octet-stream falls back to the filename extension. The second
// return is the MIME type to hand to the extractor, corrected when the proxy
// only said octet-stream.
func ResolveFileType(mimeType, filename string) (constants.FileType, string, error) {
	ft, ok := constants.TypeFromMimeLoose(mimeType)
	if !ok {
		ft, ok = constants.TypeFromFilename(filename)
	}
	if !ok {
		return "", "", common.FetchError(common.ReasonUnsupportedType,
			fmt.Sprintf("unsupported file type %q for %q; supported: PDF, Word (DOC/DOCX), images (PNG/JPG), Excel (XLS/XLSX)", mimeType, filename), nil)
	}
	corrected := mimeType
	if mimeType == "" || mimeType == constants.MimeOctetStream {
		corrected = constants.MimeFor(ft)
	}
	return ft, corrected, nil
}
