package main

import "moviecat/internal/domain"

// defaultCategories is inserted at startup; names already present are kept.
var defaultCategories = []domain.Category{
	{Name: "Action", Description: "Thrilling, adventure-packed movies"},
	{Name: "Comedy", Description: "Movies to make you laugh"},
	{Name: "Drama", Description: "Serious and moving stories"},
	{Name: "Science Fiction", Description: "Time travel, space and the future"},
	{Name: "Documentary", Description: "Content based on real events"},
	{Name: "Horror", Description: "Movies that chill and scare"},
	{Name: "Thriller", Description: "Conflicts that keep you on the edge of your seat"},
	{Name: "Romance", Description: "Stories of love and relationships"},
	{Name: "Mystery", Description: "Plots full of riddles and twists"},
	{Name: "Adventure", Description: "Epic journeys and exploration"},
	{Name: "Fantasy", Description: "Magical worlds and fantastic creatures"},
	{Name: "Animation", Description: "Cartoons and animation for all ages"},
	{Name: "Musical", Description: "Stories carried by songs and musical numbers"},
	{Name: "Biography", Description: "Life stories of real people"},
	{Name: "Historical", Description: "Reconstructions of past eras"},
	{Name: "War", Description: "Military conflicts and combat stories"},
	{Name: "Western", Description: "The American Old West, gunslingers and saloons"},
	{Name: "Family", Description: "Movies for all ages"},
	{Name: "Kids", Description: "Content made for children"},
	{Name: "Sports", Description: "Competitions, athletes and great sporting feats"},
}
