package tools

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ctera/ctera-edge-mcp/internal/session"
)

// Tool names.
const (
	ToolWhoAmI            = "ctera_edge_filer_who_am_i"
	ToolListDir           = "ctera_edge_filer_list_dir"
	ToolCreateDirectory   = "ctera_edge_filer_create_directory"
	ToolMakedirs          = "ctera_edge_filer_makedirs"
	ToolCopyItem          = "ctera_edge_filer_copy_item"
	ToolMoveItem          = "ctera_edge_filer_move_item"
	ToolDeleteItem        = "ctera_edge_filer_delete_item"
	ToolUploadFromContent = "ctera_edge_upload_from_content"
	ToolUploadFile        = "ctera_edge_filer_upload_file"
	ToolDownloadFile      = "ctera_edge_filer_download_file"
	ToolReadFile          = "ctera_edge_filer_read_file"
)

// Tools holds the catalogue's remote operations, each already wrapped with
// session.Refresh.
type Tools struct {
	logger *slog.Logger

	whoAmI        session.Op[struct{}, string]
	listDir       session.Op[string, []Entry]
	mkdir         session.Op[string, struct{}]
	makedirs      session.Op[string, struct{}]
	copyItem      session.Op[relocation, string]
	moveItem      session.Op[relocation, string]
	deleteItems   session.Op[*deletion, struct{}]
	uploadContent session.Op[content, struct{}]
	uploadFile    session.Op[relocation, struct{}]
	download      session.Op[relocation, downloaded]
	readFile      session.Op[string, string]
}

// New builds the catalogue. A nil logger means slog.Default().
func New(logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tools{
		logger:        logger,
		whoAmI:        session.Refresh(logger, ToolWhoAmI, whoAmI),
		listDir:       session.Refresh(logger, ToolListDir, listDir),
		mkdir:         session.Refresh(logger, ToolCreateDirectory, mkdir),
		makedirs:      session.Refresh(logger, ToolMakedirs, makedirs),
		copyItem:      session.Refresh(logger, ToolCopyItem, copyItem),
		moveItem:      session.Refresh(logger, ToolMoveItem, moveItem),
		deleteItems:   session.Refresh(logger, ToolDeleteItem, deleteItems),
		uploadContent: session.Refresh(logger, ToolUploadFromContent, uploadContent),
		uploadFile:    session.Refresh(logger, ToolUploadFile, uploadFile),
		download:      session.Refresh(logger, ToolDownloadFile, download),
		readFile:      session.Refresh(logger, ToolReadFile, readFile),
	}
}

// Add registers every tool on s.
func (t *Tools) Add(s *server.MCPServer) {
	s.AddTool(readOnly(ToolWhoAmI,
		mcp.WithDescription("Get the currently authenticated user on the CTERA Edge Filer."),
	), t.WhoAmI)

	s.AddTool(readOnly(ToolListDir,
		mcp.WithDescription("List the contents of a directory on the CTERA Edge Filer. Returns name, type, path, last_modified and is_dir for each entry."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Directory path, relative to the share root")),
	), t.ListDir)

	s.AddTool(modifying(ToolCreateDirectory,
		mcp.WithDescription("Create a single directory on the CTERA Edge Filer. The parent directory must exist."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Directory path to create")),
	), t.CreateDirectory)

	s.AddTool(modifying(ToolMakedirs,
		mcp.WithDescription("Create a directory and any missing parent directories on the CTERA Edge Filer."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Directory path to create, including parents")),
	), t.Makedirs)

	s.AddTool(modifying(ToolCopyItem,
		mcp.WithDescription("Copy a file or directory on the CTERA Edge Filer. If destination is an existing directory the item is copied into it."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Path of the item to copy")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("Destination directory or target path")),
	), t.CopyItem)

	s.AddTool(destructive(ToolMoveItem,
		mcp.WithDescription("Move or rename a file or directory on the CTERA Edge Filer. If destination is an existing directory the item is moved into it."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Path of the item to move")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("Destination directory or target path")),
	), t.MoveItem)

	s.AddTool(destructive(ToolDeleteItem,
		mcp.WithDescription("Delete one or more files or directories on the CTERA Edge Filer."),
		mcp.WithArray("paths", mcp.Required(),
			mcp.Description("Paths to delete"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), t.DeleteItem)

	s.AddTool(modifying(ToolUploadFromContent,
		mcp.WithDescription("Write content to a file on the CTERA Edge Filer, replacing it if it exists."),
		mcp.WithString("filepath", mcp.Required(), mcp.Description("Destination file path on the Edge Filer")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content")),
		mcp.WithString("encoding",
			mcp.Description("How content is encoded: text or base64"),
			mcp.Enum(encodingText, encodingBase64),
			mcp.DefaultString(encodingText),
		),
	), t.UploadFromContent)

	s.AddTool(modifying(ToolUploadFile,
		mcp.WithDescription("Upload a file from the server's local filesystem to the CTERA Edge Filer."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Local file path to upload")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("Destination file path on the Edge Filer")),
	), t.UploadFile)

	s.AddTool(modifying(ToolDownloadFile,
		mcp.WithDescription("Download a file from the CTERA Edge Filer to the server's local filesystem."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path on the Edge Filer")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("Local file or directory to write to")),
	), t.DownloadFile)

	s.AddTool(readOnly(ToolReadFile,
		mcp.WithDescription("Read a text file from the CTERA Edge Filer."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path on the Edge Filer")),
	), t.ReadFile)

	t.logger.Debug("tools registered")
}

func readOnly(name string, opts ...mcp.ToolOption) mcp.Tool {
	return annotated(name, true, false, opts)
}

func modifying(name string, opts ...mcp.ToolOption) mcp.Tool {
	return annotated(name, false, false, opts)
}

func destructive(name string, opts ...mcp.ToolOption) mcp.Tool {
	return annotated(name, false, true, opts)
}

func annotated(name string, readOnly, destructive bool, opts []mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(readOnly),
		DestructiveHint: mcp.ToBoolPtr(destructive),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}))

	return mcp.NewTool(name, opts...)
}
