package command_parser

import "novelai_bot/entities"

type Parser interface {
	Parse(message string) (*entities.ParsedParams, error)
}
