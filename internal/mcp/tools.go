package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

func feedParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("group", mcp.Required(), mcp.Description("Feed group, e.g. \"user\" or \"notify\".")),
		mcp.WithString("user", mcp.Required(), mcp.Description("Feed owner id.")),
	}
}

func withFeed(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append(feedParams(), opts...)...)
}

var listToolDef = withFeed("feed_list",
	mcp.WithDescription("Read one page of a feed. Use page+per or id_lt to paginate; includes resolves references to stored objects and drops the ones that cannot be resolved."),
	mcp.WithNumber("page", mcp.Description("1-based page number. Needs per (defaults to the configured page size).")),
	mcp.WithNumber("per", mcp.Description("Page size.")),
	mcp.WithString("id_lt", mcp.Description("Return activities older than this id.")),
	mcp.WithNumber("limit", mcp.Description("Raw limit, used when no page is given.")),
	mcp.WithNumber("offset", mcp.Description("Raw offset, used when no page is given.")),
	mcp.WithArray("includes", stringItems, mcp.Description("Fields to enrich, e.g. [\"actor\", \"object\"]. \"subject\" means object.")),
	mcp.WithArray("blocked", mcp.Items(map[string]any{"type": "integer"}), mcp.Description("User ids whose activities are hidden.")),
	mcp.WithBoolean("sfw", mcp.Description("Request safe-for-work results.")),
	mcp.WithString("ranking", mcp.Description("Ranking method. Only \"time\" is supported.")),
	mcp.WithBoolean("mark_read_all", mcp.Description("Mark every group read (notification feeds).")),
	mcp.WithArray("mark_read", stringItems, mcp.Description("Group ids to mark read.")),
	mcp.WithBoolean("mark_seen_all", mcp.Description("Mark every group seen (notification feeds).")),
	mcp.WithArray("mark_seen", stringItems, mcp.Description("Group ids to mark seen.")),
	mcp.WithString("render", mcp.Enum("markdown"), mcp.Description("Set to \"markdown\" to add message_html.")),
)

var addToolDef = withFeed("feed_add",
	mcp.WithDescription("Add an activity to a feed. actor, verb and object are required; foreign_id and time make the add idempotent."),
	mcp.WithObject("activity", mcp.Required(), mcp.Description("Activity fields.")),
)

var updateToolDef = withFeed("feed_update",
	mcp.WithDescription("Replace an activity, addressed by foreign_id and time, in every feed that holds it."),
	mcp.WithObject("activity", mcp.Required(), mcp.Description("Complete activity fields including foreign_id and time.")),
)

var removeToolDef = withFeed("feed_remove",
	mcp.WithDescription("Remove the activities with a foreign id (\"<type>:<id>\") from a feed."),
	mcp.WithString("foreign_id", mcp.Required(), mcp.Description("Foreign id of the activity.")),
)

var kindToolDef = withFeed("feed_kind",
	mcp.WithDescription("Set a feed's kind. Aggregated and notification feeds return groups of activities by verb and day."),
	mcp.WithString("kind", mcp.Required(), mcp.Enum("flat", "aggregated", "notification")),
)

var objectPutToolDef = mcp.NewTool("object_put",
	mcp.WithDescription("Store the object a \"<type>:<id>\" reference resolves to during enrichment."),
	mcp.WithString("ref", mcp.Required(), mcp.Description("Reference, e.g. \"User:42\".")),
	mcp.WithObject("data", mcp.Description("Object fields.")),
)
