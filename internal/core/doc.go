// Package core provides the business logic for batch fetch-and-archive exports.
//
// An operator uploads a row list where each row names a remote tabular
// resource and holds its download URL. The package validates the rows,
// fetches each selected URL, converts the result to a spreadsheet, and
// returns a ZIP archive with a success/failure report. It is independent of
// any UI or transport layer and is used by the web handlers and the CLI.
//
// # Architecture
//
//   - Profiles: naming schemas registered with [RegisterProfile]. A profile
//     names the URL column and the ordered columns that build filenames.
//   - Validation: [ValidateHeaders] and [ValidateRows] split rows into usable
//     and unusable before anything is fetched.
//   - Fetching: [HTTPFetcher] performs one GET per URL and [Decode] reads the
//     body as JSON or, failing that, as a workbook.
//   - Export: [Exporter.Export] assembles the archive. Filenames come from
//     [ResolveName] and are made unique by a [NameRegistry].
//   - Service: upload sessions, row selection, background export runs with
//     progress subscribers, and single-row check and download.
//
// # Profiles
//
//	core.RegisterProfile(core.Profile{
//	    Key:          "bps",
//	    Label:        "BPS publication list",
//	    URLColumn:    "link_download",
//	    NameColumns:  []string{"Penamaan_Data", "PIC", "Bulan_rilis"},
//	    RequireNames: true,
//	})
//
// # Caching
//
// Within one export a URL is requested at most once, whether it succeeds or
// fails. Across exports, [MemoFetcher] keeps successful results by URL and
// [RowCache] keeps results per session row. Both are cleared by
// [Service.Reset].
//
// # Error Handling
//
// Row and fetch problems never abort an export; they are listed in the
// [ExportReport]. Technical errors are mapped to operator-facing messages with
// [MapError]. Each category has a code for support reference:
//
//   - FILE001-FILE006: upload file errors
//   - VAL001-VAL005: header and row validation
//   - FETCH001-FETCH006: remote resource failures
//   - EXP001-EXP006: export runs
//   - SES001-SES002: sessions and rows
package core
