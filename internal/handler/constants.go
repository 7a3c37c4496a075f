// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSuffixNew is the suffix for "new" routes.
	RouteSuffixNew = "/new"
	// RouteSuffixEdit is the suffix for edit forms.
	RouteSuffixEdit = "/edit"
	// RouteSuffixDelete is the suffix for delete posts from HTML forms.
	RouteSuffixDelete = "/delete"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"

	RouteEventSlug    = "/events/{slug}"
	RouteEventSearch  = "/events/search"
	RouteCategorySlug = "/category/{slug}"
	RouteSuggest      = "/suggest"
	RouteNewsletter   = "/newsletter"
	RouteFeedback     = "/feedback"
	RouteHealth       = "/health"
	RouteUploads      = "/uploads"
	RouteStatic       = "/static"
	RouteSitemap      = "/sitemap.xml"
	RouteRobots       = "/robots.txt"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"

	// RouteAdmin is the admin prefix.
	RouteAdmin = "/admin"
	// RouteEvents is the events admin route.
	RouteEvents = "/events"
	// RouteCategories is the categories admin route.
	RouteCategories = "/categories"
	// RouteSlug previews slugs while a form is edited.
	RouteSlug = "/slug"
	// RouteSubscribers lists newsletter subscribers.
	RouteSubscribers = "/subscribers"
	// RouteFeedbackInbox lists received feedback.
	RouteFeedbackInbox = "/feedback"

	RouteEventsID        = RouteEvents + RouteParamID
	RouteEventsIDEdit    = RouteEventsID + RouteSuffixEdit
	RouteEventsIDPublish = RouteEventsID + "/publish"
	RouteEventsIDDraft   = RouteEventsID + "/draft"
	RouteEventsIDDelete  = RouteEventsID + RouteSuffixDelete

	RouteCategoriesID       = RouteCategories + RouteParamID
	RouteCategoriesIDEdit   = RouteCategoriesID + RouteSuffixEdit
	RouteCategoriesIDDelete = RouteCategoriesID + RouteSuffixDelete
)

// Redirect targets.
const (
	routeLogin           = RouteLogin
	redirectAdmin        = RouteAdmin
	redirectAdminEvents  = RouteAdmin + RouteEvents
	redirectAdminCats    = RouteAdmin + RouteCategories
	redirectAdminEventsS = redirectAdminEvents + "/"
)

// Form limits.
const (
	// MaxUploadSize bounds multipart event forms including the image.
	MaxUploadSize = 10 << 20
	// maxFormMemory is kept in memory before multipart files spill to disk.
	maxFormMemory = 4 << 20
)
