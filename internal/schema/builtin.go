package schema

import "github.com/mesh-intelligence/folio/pkg/types"

// Common fields shared by every entity type.
var commonFields = []types.FieldDescriptor{
	{Name: "published", Label: "Published", Type: types.FieldBoolean},
}

var builtinSchemas = []EntitySchema{
	{
		Type:  types.EntityHero,
		Label: "Hero",
		Table: "heroes",
		Sections: []types.SectionSpec{
			{ID: types.SectionBasics, Label: "Basics", Mandatory: true},
			{ID: types.SectionCTA, Label: "Call to action", Enabled: true},
			{ID: types.SectionBackground, Label: "Background"},
		},
		Fields: []types.FieldDescriptor{
			{Name: "headline", Label: "Headline", Type: types.FieldText, Required: true, MaxLength: 120, Section: types.SectionBasics},
			{Name: "subheadline", Label: "Subheadline", Type: types.FieldLongText, MaxLength: 300, Section: types.SectionBasics},
			{Name: "rotating_words", Label: "Rotating words", Type: types.FieldTagList, Section: types.SectionBasics},
			{Name: "cta_label", Label: "Button label", Type: types.FieldText, Required: true, MaxLength: 40, Section: types.SectionCTA},
			{Name: "cta_url", Label: "Button link", Type: types.FieldText, Required: true, MaxLength: 2048, Section: types.SectionCTA},
			{Name: "background_image", Label: "Background image", Type: types.FieldImage, Required: true, Section: types.SectionBackground},
		},
	},
	{
		Type:  types.EntityAbout,
		Label: "About",
		Table: "about",
		Sections: []types.SectionSpec{
			{ID: types.SectionBasics, Label: "Basics", Mandatory: true},
			{ID: types.SectionHighlights, Label: "Highlights", Enabled: true},
			{ID: types.SectionMedia, Label: "Portrait"},
		},
		Fields: []types.FieldDescriptor{
			{Name: "title", Label: "Title", Type: types.FieldText, Required: true, MaxLength: 80, Section: types.SectionBasics},
			{Name: "bio", Label: "Biography", Type: types.FieldLongText, Required: true, MaxLength: 4000, Section: types.SectionBasics},
			{Name: "highlights", Label: "Highlights", Type: types.FieldTagList, Required: true, Section: types.SectionHighlights},
			{Name: "portrait", Label: "Portrait", Type: types.FieldImage, Required: true, Section: types.SectionMedia},
			{Name: "resume_url", Label: "Résumé link", Type: types.FieldText, MaxLength: 2048},
		},
	},
	{
		Type:  types.EntityProject,
		Label: "Project",
		Table: "projects",
		Sections: []types.SectionSpec{
			{ID: types.SectionDetails, Label: "Details", Mandatory: true},
			{ID: types.SectionMedia, Label: "Media", Enabled: true},
			{ID: types.SectionLinks, Label: "Links"},
			{ID: types.SectionCode, Label: "Code sample"},
		},
		Fields: []types.FieldDescriptor{
			{Name: "title", Label: "Title", Type: types.FieldText, Required: true, MaxLength: 100, Section: types.SectionDetails},
			{Name: "summary", Label: "Summary", Type: types.FieldLongText, MaxLength: 500, Section: types.SectionDetails},
			{Name: "category", Label: "Category", Type: types.FieldSingleSelect, Required: true, Options: []string{"web", "mobile", "data", "tooling"}, Section: types.SectionDetails},
			{Name: "tech_stack", Label: "Tech stack", Type: types.FieldTagList, Section: types.SectionDetails},
			{Name: "featured", Label: "Featured", Type: types.FieldBoolean, Section: types.SectionDetails},
			{Name: "cover_image", Label: "Cover image", Type: types.FieldImage, Required: true, Section: types.SectionMedia},
			{Name: "gallery", Label: "Gallery", Type: types.FieldImageCollection, Section: types.SectionMedia},
			{Name: "live_url", Label: "Live site", Type: types.FieldText, MaxLength: 2048, Section: types.SectionLinks},
			{Name: "repo_url", Label: "Repository", Type: types.FieldText, MaxLength: 2048, Section: types.SectionLinks},
			{Name: "snippet", Label: "Snippet", Type: types.FieldCodeSnippet, Required: true, Section: types.SectionCode},
			{Name: "snippet_language", Label: "Language", Type: types.FieldSingleSelect, Options: []string{"go", "typescript", "python", "rust", "sql"}, Section: types.SectionCode},
		},
		Collections: []types.Collection{
			{Name: "tags", Table: "project_tags"},
		},
	},
	{
		Type:  types.EntityExperience,
		Label: "Experience",
		Table: "experiences",
		Sections: []types.SectionSpec{
			{ID: types.SectionDetails, Label: "Details", Mandatory: true},
			{ID: types.SectionMedia, Label: "Logo"},
		},
		Fields: []types.FieldDescriptor{
			{Name: "company", Label: "Company", Type: types.FieldText, Required: true, MaxLength: 100, Section: types.SectionDetails},
			{Name: "role", Label: "Role", Type: types.FieldText, Required: true, MaxLength: 100, Section: types.SectionDetails},
			{Name: "period", Label: "Period", Type: types.FieldText, MaxLength: 60, Section: types.SectionDetails},
			{Name: "current", Label: "Current position", Type: types.FieldBoolean, Section: types.SectionDetails},
			{Name: "description", Label: "Description", Type: types.FieldLongText, MaxLength: 2000, Section: types.SectionDetails},
			{Name: "logo", Label: "Company logo", Type: types.FieldImage, Section: types.SectionMedia},
		},
		Collections: []types.Collection{
			{Name: "achievements", Table: "experience_achievements"},
		},
	},
	{
		Type:  types.EntitySkillCategory,
		Label: "Skill category",
		Table: "skill_categories",
		Fields: []types.FieldDescriptor{
			{Name: "name", Label: "Name", Type: types.FieldText, Required: true, MaxLength: 60},
			{Name: "description", Label: "Description", Type: types.FieldLongText, MaxLength: 500},
			{Name: "icon", Label: "Icon", Type: types.FieldImage},
		},
		Collections: []types.Collection{
			{Name: "skills", Table: "skills"},
		},
	},
	{
		Type:  types.EntitySocialLink,
		Label: "Social link",
		Table: "social_links",
		Fields: []types.FieldDescriptor{
			{Name: "platform", Label: "Platform", Type: types.FieldSingleSelect, Required: true, Options: []string{"github", "linkedin", "x", "mastodon", "email", "website"}},
			{Name: "url", Label: "URL", Type: types.FieldText, Required: true, MaxLength: 2048},
			{Name: "label", Label: "Label", Type: types.FieldText, MaxLength: 60},
		},
	},
	{
		Type:  types.EntityContact,
		Label: "Contact",
		Table: "contact",
		Sections: []types.SectionSpec{
			{ID: types.SectionBasics, Label: "Basics", Mandatory: true},
			{ID: types.SectionSocial, Label: "Social links", Enabled: true},
		},
		Fields: []types.FieldDescriptor{
			{Name: "email", Label: "Email", Type: types.FieldText, Required: true, MaxLength: 254, Section: types.SectionBasics},
			{Name: "location", Label: "Location", Type: types.FieldText, MaxLength: 100, Section: types.SectionBasics},
			{Name: "availability", Label: "Availability", Type: types.FieldSingleSelect, Options: []string{"open", "limited", "closed"}, Section: types.SectionBasics},
			{Name: "message", Label: "Intro message", Type: types.FieldLongText, MaxLength: 1000, Section: types.SectionBasics},
			{Name: "social_heading", Label: "Social heading", Type: types.FieldText, MaxLength: 80, Section: types.SectionSocial},
		},
		Collections: []types.Collection{
			{Name: "links", Table: "contact_links"},
		},
	},
	{
		Type:  types.EntityBlogPost,
		Label: "Blog post",
		Table: "blog_posts",
		Sections: []types.SectionSpec{
			{ID: types.SectionDetails, Label: "Content", Mandatory: true},
			{ID: types.SectionMedia, Label: "Cover"},
			{ID: types.SectionSEO, Label: "SEO"},
		},
		Fields: []types.FieldDescriptor{
			{Name: "title", Label: "Title", Type: types.FieldText, Required: true, MaxLength: 150, Section: types.SectionDetails},
			{Name: "slug", Label: "Slug", Type: types.FieldText, Required: true, MaxLength: 150, Section: types.SectionDetails},
			{Name: "excerpt", Label: "Excerpt", Type: types.FieldLongText, MaxLength: 300, Section: types.SectionDetails},
			{Name: "body", Label: "Body", Type: types.FieldLongText, Required: true, Section: types.SectionDetails},
			{Name: "tags", Label: "Tags", Type: types.FieldTagList, Section: types.SectionDetails},
			{Name: "cover_image", Label: "Cover image", Type: types.FieldImage, Required: true, Section: types.SectionMedia},
			{Name: "seo_title", Label: "SEO title", Type: types.FieldText, Required: true, MaxLength: 60, Section: types.SectionSEO},
			{Name: "seo_description", Label: "SEO description", Type: types.FieldLongText, MaxLength: 160, Section: types.SectionSEO},
		},
	},
}

var defaultRegistry = MustNew(commonFields, builtinSchemas...)

// Default returns the built-in portfolio registry.
func Default() *Registry {
	return defaultRegistry
}
