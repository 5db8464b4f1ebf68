package repository

var Translate = translate
